package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"

	"github.com/dgnsrekt/blockvox/internal/blocks"
	"github.com/dgnsrekt/blockvox/internal/encoder"
	"github.com/dgnsrekt/blockvox/internal/generation"
	"github.com/dgnsrekt/blockvox/internal/tts"
)

type blockRequest struct {
	Title *string `json:"title"`
	Text  *string `json:"text"`
	Voice *string `json:"voice"`
}

type voiceRequest struct {
	Voice string `json:"voice"`
}

type blockResponse struct {
	blocks.Block
	Index    int  `json:"index"`
	HasAudio bool `json:"has_audio"`
}

type listResponse struct {
	Version uint64              `json:"version"`
	Blocks  []blockResponse     `json:"blocks"`
	Pending int                 `json:"pending"`
	Batch   generation.Progress `json:"batch"`
}

type batchResponse struct {
	RunID    string              `json:"run_id,omitempty"`
	Progress generation.Progress `json:"progress"`
	LastRun  *runResult          `json:"last_run,omitempty"`
}

func toResponse(b blocks.Block, index int) blockResponse {
	return blockResponse{Block: b, Index: index, HasAudio: b.HasAudio()}
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"engine": s.opts.Engine.Name,
		"model":  s.opts.Engine.Model,
	})
}

func (s *Server) voices(c *fiber.Ctx) error {
	return c.JSON(tts.SearchVoices(c.Query("q")))
}

// applyVoice is the global voice selector: every block and every block added
// later gets the voice.
func (s *Server) applyVoice(c *fiber.Ctx) error {
	var req voiceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	voice, err := canonicalVoice(&req.Voice)
	if err != nil {
		return err
	}
	if voice == "" {
		return fiber.NewError(fiber.StatusBadRequest, "voice is required")
	}

	changed := s.opts.Store.ApplyVoiceToAll(voice)
	log.Info("voice applied to all blocks", "voice", voice, "changed", changed)
	return c.JSON(fiber.Map{"voice": voice, "changed": changed})
}

func (s *Server) listBlocks(c *fiber.Ctx) error {
	snap := s.opts.Store.Snapshot()
	out := listResponse{
		Version: snap.Version,
		Blocks:  make([]blockResponse, len(snap.Blocks)),
		Pending: len(snap.Pending()),
		Batch:   s.opts.Orchestrator.Progress(),
	}
	for i, b := range snap.Blocks {
		out.Blocks[i] = toResponse(b, i)
	}
	return c.JSON(out)
}

func (s *Server) lookup(id string) (blocks.Block, int, error) {
	snap := s.opts.Store.Snapshot()
	i := snap.Index(id)
	if i < 0 {
		return blocks.Block{}, -1, fmt.Errorf("%w: %s", blocks.ErrUnknownBlock, id)
	}
	return snap.Blocks[i], i, nil
}

func (s *Server) respondBlock(c *fiber.Ctx, id string) error {
	b, i, err := s.lookup(id)
	if err != nil {
		return err
	}
	return c.JSON(toResponse(b, i))
}

func canonicalVoice(v *string) (string, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return "", nil
	}
	return tts.ValidateVoice(*v)
}

func (s *Server) createBlock(c *fiber.Ctx) error {
	var req blockRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
		}
	}
	voice, err := canonicalVoice(req.Voice)
	if err != nil {
		return err
	}

	add := blocks.AddBlock{Voice: voice}
	if req.Title != nil {
		add.Title = *req.Title
	}
	if req.Text != nil {
		add.Text = *req.Text
	}
	id := s.opts.Store.AddWith(add)

	c.Status(fiber.StatusCreated)
	return s.respondBlock(c, id)
}

func (s *Server) updateBlock(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, _, err := s.lookup(id); err != nil {
		return err
	}

	var req blockRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	voice, err := canonicalVoice(req.Voice)
	if err != nil {
		return err
	}

	if req.Title != nil {
		if err := s.opts.Store.UpdateTitle(id, *req.Title); err != nil {
			return err
		}
	}
	if req.Text != nil {
		if err := s.opts.Store.UpdateText(id, *req.Text); err != nil {
			return err
		}
	}
	if voice != "" {
		if err := s.opts.Store.UpdateVoice(id, voice); err != nil {
			return err
		}
	}
	return s.respondBlock(c, id)
}

func (s *Server) deleteBlock(c *fiber.Ctx) error {
	if err := s.opts.Store.Delete(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) generateBlock(c *fiber.Ctx) error {
	id := c.Params("id")
	b, _, err := s.lookup(id)
	if err != nil {
		return err
	}
	if !b.HasText() {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "block has no text")
	}
	if b.Status.IsActive() {
		return fiber.NewError(fiber.StatusConflict, "block is already generating")
	}

	outcome, err := s.opts.Generator.Generate(c.UserContext(), id)
	if err != nil {
		return err
	}
	log.Debug("block generated over http", "block", id, "outcome", outcome)
	if outcome == generation.OutcomeStale {
		return fiber.NewError(fiber.StatusConflict, "block changed while generating")
	}
	return s.respondBlock(c, id)
}

func (s *Server) blockAudio(c *fiber.Ctx) error {
	b, i, err := s.lookup(c.Params("id"))
	if err != nil {
		return err
	}
	entry, err := s.opts.Exporter.Block(c.UserContext(), b, i)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, encoder.MimeType)
	c.Attachment(entry.Name)
	return c.Send(entry.Data)
}

// blockHistory lists the recorded state changes of one block, oldest first.
// Deleted blocks keep their history until it rotates out.
func (s *Server) blockHistory(c *fiber.Ctx) error {
	id := c.Params("id")
	out := []blocks.Transition{}
	for _, t := range s.opts.Store.History() {
		if t.BlockID == id {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		if _, _, err := s.lookup(id); err != nil {
			return err
		}
	}
	return c.JSON(out)
}

func (s *Server) startBatch(c *fiber.Ctx) error {
	if s.opts.Store.PendingCount() == 0 {
		return c.JSON(batchResponse{Progress: s.opts.Orchestrator.Progress()})
	}
	id, ok := s.beginRun()
	if !ok {
		return fiber.NewError(fiber.StatusConflict, generation.ErrBatchRunning.Error())
	}

	s.wg.Add(1)
	go s.runBatch(id)
	log.Info("batch run started over http", "run", id)

	c.Status(fiber.StatusAccepted)
	return c.JSON(batchResponse{RunID: id, Progress: s.opts.Orchestrator.Progress()})
}

func (s *Server) batchStatus(c *fiber.Ctx) error {
	s.mu.Lock()
	resp := batchResponse{RunID: s.runID, LastRun: s.lastRun}
	s.mu.Unlock()
	resp.Progress = s.opts.Orchestrator.Progress()
	return c.JSON(resp)
}

func (s *Server) exportArchive(c *fiber.Ctx) error {
	data, err := s.opts.Exporter.Archive(c.UserContext(), s.opts.Store.Snapshot().Blocks)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/zip")
	c.Attachment(s.opts.ArchiveName)
	return c.Send(data)
}

func (s *Server) cacheStats(c *fiber.Ctx) error {
	return c.JSON(s.opts.Cache.Stats())
}

func (s *Server) clearCache(c *fiber.Ctx) error {
	freed := s.opts.Cache.Size()
	s.opts.Cache.Clear()
	log.Info("cache cleared", "freed", freed)
	return c.JSON(fiber.Map{"freed": freed})
}

// errorHandler maps domain errors onto status codes.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := err.Error()

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
		msg = fe.Message
	case errors.Is(err, tts.ErrNothingToExport), errors.Is(err, blocks.ErrUnknownBlock):
		code = fiber.StatusNotFound
	case errors.Is(err, tts.ErrEncoding):
		code = fiber.StatusUnprocessableEntity
	case errors.Is(err, tts.ErrUnknownVoice):
		code = fiber.StatusBadRequest
	case errors.Is(err, blocks.ErrInvalidTransition), errors.Is(err, blocks.ErrStaleRevision):
		code = fiber.StatusConflict
	}
	if code >= fiber.StatusInternalServerError {
		log.Error("request failed", "path", c.Path(), "err", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
