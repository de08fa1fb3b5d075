package api

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/insightdelivered/statementlens/internal/buildinfo"
	"github.com/insightdelivered/statementlens/internal/jobs"
)

// ParseMeta is the job metadata returned by POST /parse.
type ParseMeta struct {
	Bank          string `json:"bank"`
	FormatID      string `json:"formatId"`
	ProductType   string `json:"productType"`
	MovementCount int    `json:"movementCount"`
	Currency      string `json:"currency,omitempty"`
	Account       string `json:"account,omitempty"`
	DateFrom      string `json:"dateFrom,omitempty"`
	DateTo        string `json:"dateTo,omitempty"`
}

// ParseResponse is the body of a successful POST /parse.
type ParseResponse struct {
	JobID   string           `json:"jobId"`
	Status  jobs.Status      `json:"status"`
	Meta    ParseMeta        `json:"meta"`
	Preview []map[string]any `json:"preview"`
}

// FormatInfo describes one catalog entry for GET /formats.
type FormatInfo struct {
	ID          string `json:"id"`
	Bank        string `json:"bank"`
	ProductType string `json:"productType"`
	Supported   bool   `json:"supported"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": buildinfo.Version,
		"engine":  "fiber",
		"formats": s.catalog.Len(),
		"uploads": s.limiter.Status(),
	})
}

func (s *Server) handleFormats(c *fiber.Ctx) error {
	defs := s.catalog.All()
	out := make([]FormatInfo, 0, len(defs))
	for _, d := range defs {
		_, err := s.parsers.Lookup(d.ID)
		out = append(out, FormatInfo{
			ID:          d.ID,
			Bank:        d.Bank,
			ProductType: d.ProductType,
			Supported:   err == nil,
		})
	}
	return c.JSON(out)
}

func (s *Server) handleParse(c *fiber.Ctx) error {
	ctx := c.UserContext()

	header, err := c.FormFile("file")
	if err != nil {
		return respondError(c, errNoFile, "")
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		return respondError(c, errNotPDF, "")
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return respondError(c, err, "")
	}
	defer s.limiter.Release()

	f, err := header.Open()
	if err != nil {
		return respondError(c, err, "")
	}
	defer f.Close()

	out, err := s.pipeline.Process(ctx, jobs.Upload{FileName: header.Filename, Body: f})
	if err != nil {
		jobID := ""
		if out != nil && out.Job != nil {
			jobID = out.Job.ID
		}
		return respondError(c, err, jobID)
	}

	preview := out.Preview
	if preview == nil {
		preview = []map[string]any{}
	}
	job := out.Job
	return c.Status(fiber.StatusCreated).JSON(ParseResponse{
		JobID:  job.ID,
		Status: job.Status,
		Meta: ParseMeta{
			Bank:          job.Bank,
			FormatID:      job.FormatID,
			ProductType:   job.ProductType,
			MovementCount: job.MovementCount,
			Currency:      job.Currency,
			Account:       job.Account,
			DateFrom:      job.DateFrom,
			DateTo:        job.DateTo,
		},
		Preview: preview,
	})
}

func (s *Server) handleJob(c *fiber.Ctx) error {
	id := utils.CopyString(c.Params("id"))
	job, err := s.pipeline.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err, id)
	}
	return c.JSON(job)
}

// PreviewResponse is the body of GET /jobs/:id/preview.
type PreviewResponse struct {
	JobID string           `json:"jobId"`
	Rows  []map[string]any `json:"rows"`
}

func (s *Server) handlePreview(c *fiber.Ctx) error {
	id := utils.CopyString(c.Params("id"))
	rows, err := s.pipeline.Preview(c.UserContext(), id)
	if err != nil {
		return respondError(c, err, id)
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return c.JSON(PreviewResponse{JobID: id, Rows: rows})
}

func (s *Server) handleExport(kind jobs.ExportKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := utils.CopyString(c.Params("id"))
		exp, err := s.pipeline.Export(c.UserContext(), id, kind)
		if err != nil {
			return respondError(c, err, id)
		}
		if err := c.Download(exp.Path, exp.FileName); err != nil {
			return respondError(c, fmt.Errorf("sending export: %w", err), id)
		}
		return nil
	}
}
