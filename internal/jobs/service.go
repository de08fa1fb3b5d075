package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/insightdelivered/statementlens/internal/detect"
	"github.com/insightdelivered/statementlens/internal/formats"
	"github.com/insightdelivered/statementlens/internal/logging"
	"github.com/insightdelivered/statementlens/internal/models"
	"github.com/insightdelivered/statementlens/internal/normalize"
	"github.com/insightdelivered/statementlens/internal/parser"
	"github.com/insightdelivered/statementlens/internal/storage"
	"github.com/insightdelivered/statementlens/internal/writer"
)

// DefaultPreviewRows is how many movements are kept in a job preview.
const DefaultPreviewRows = 50

// Files stores the documents belonging to a job.
type Files interface {
	SaveInput(jobID, fileName string, r io.Reader) (string, error)
	SavePreview(jobID string, rows []map[string]any) (string, error)
	ReadPreview(path string) ([]map[string]any, error)
	OutputPath(jobID, ext string) (string, error)
	Exists(path string) bool
}

// Sampler returns the detection sample of the document at path.
type Sampler func(path string) string

// Upload is a document submitted for conversion.
type Upload struct {
	FileName string
	Body     io.Reader
}

// Outcome is the result of processing an upload. Job is set whenever a job
// record was created, including when processing failed.
type Outcome struct {
	Job     *Job
	Preview []map[string]any
}

// ExportKind selects the export file type.
type ExportKind string

const (
	ExportXLSX ExportKind = "xlsx"
	ExportCSV  ExportKind = "csv"
)

// Export is a rendered file ready to be served.
type Export struct {
	Job      *Job
	Path     string
	FileName string
}

// Service runs the conversion pipeline.
type Service struct {
	store       Store
	files       Files
	catalog     *formats.Catalog
	parsers     *parser.Registry
	sample      Sampler
	previewRows int
	csvHeader   bool
	now         func() time.Time
	newID       func() string
	locks       keyedMutex
}

// Option configures a Service.
type Option func(*Service)

// WithSampler replaces the PDF text sampler.
func WithSampler(fn Sampler) Option {
	return func(s *Service) { s.sample = fn }
}

// WithSamplePages sets how many leading pages the default sampler reads.
func WithSamplePages(n int) Option {
	return func(s *Service) {
		s.sample = func(path string) string { return detect.SampleText(path, n) }
	}
}

// WithPreviewRows sets the preview size.
func WithPreviewRows(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.previewRows = n
		}
	}
}

// WithCSVHeader writes the statement metadata above CSV exports.
func WithCSVHeader(on bool) Option {
	return func(s *Service) { s.csvHeader = on }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// NewService wires a pipeline from its collaborators.
func NewService(store Store, files Files, catalog *formats.Catalog, parsers *parser.Registry, opts ...Option) *Service {
	s := &Service{
		store:       store,
		files:       files,
		catalog:     catalog,
		parsers:     parsers,
		sample:      func(path string) string { return detect.SampleText(path, detect.DefaultSamplePages) },
		previewRows: DefaultPreviewRows,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the job with the given id.
func (s *Service) Get(ctx context.Context, id string) (*Job, error) {
	return s.store.Get(ctx, id)
}

// Preview returns the preview rows saved when the job was parsed.
func (s *Service) Preview(ctx context.Context, id string) ([]map[string]any, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.PreviewPath == "" {
		return nil, fmt.Errorf("%w: job %s is %s", ErrNoPreview, id, job.Status)
	}
	rows, err := s.files.ReadPreview(job.PreviewPath)
	if err != nil {
		return nil, &UnexpectedError{Stage: "preview", Err: err}
	}
	return rows, nil
}

// Process stores the upload, detects its format and parses it. The job is
// persisted after every stage; any failure moves it to failed and is
// returned as *detect.DetectionError, *parser.NoParserError,
// *EmptyResultError or *UnexpectedError.
func (s *Service) Process(ctx context.Context, up Upload) (*Outcome, error) {
	id := s.newID()
	log := logging.WithFields(ctx, "job_id", id)

	inputPath, err := s.files.SaveInput(id, up.FileName, up.Body)
	if err != nil {
		return nil, &UnexpectedError{Stage: "upload", Err: err}
	}

	job := New(id, inputPath, s.now())
	if err := s.store.Create(ctx, job); err != nil {
		return nil, &UnexpectedError{Stage: "upload", Err: err}
	}
	out := &Outcome{Job: job}
	log.Info("job created", "file", up.FileName)

	unlock := s.locks.Lock(id)
	defer unlock()

	res, err := detect.Detect(s.sample(inputPath), s.catalog)
	if err != nil {
		return out, s.fail(ctx, job, "detect", err)
	}
	if err := job.MarkDetected(res.Format.Bank, res.Format.ID, res.Format.ProductType); err != nil {
		return out, s.fail(ctx, job, "detect", err)
	}
	if err := s.persist(ctx, job); err != nil {
		return out, s.fail(ctx, job, "detect", err)
	}
	log.Info("format detected", "format_id", res.Format.ID, "score", res.Score)

	table, err := s.parse(job)
	if err != nil {
		return out, s.fail(ctx, job, "parse", err)
	}

	preview := PreviewRows(table, s.previewRows)
	previewPath, err := s.files.SavePreview(id, preview)
	if err != nil {
		return out, s.fail(ctx, job, "parse", err)
	}
	if err := job.MarkParsed(Summarize(table), previewPath); err != nil {
		return out, s.fail(ctx, job, "parse", err)
	}
	if err := s.persist(ctx, job); err != nil {
		return out, s.fail(ctx, job, "parse", err)
	}
	out.Preview = preview
	log.Info("statement parsed", "format_id", job.FormatID, "movements", job.MovementCount)

	return out, nil
}

// parse runs the registered parser on the job input. A table without rows
// is an *EmptyResultError.
func (s *Service) parse(job *Job) (models.Table, error) {
	p, err := s.parsers.Lookup(job.FormatID)
	if err != nil {
		return models.Table{}, err
	}
	table, err := p.Parse(job.InputPath)
	if err != nil {
		return models.Table{}, err
	}
	if table.Empty() {
		return models.Table{}, &EmptyResultError{}
	}
	return table, nil
}

// Export renders a parsed job. The input document is parsed again, the
// table normalized for the job's format and written as kind. The first
// export moves the job to exported; exporting an exported job serves the
// existing file, or renders the other kind without a transition.
func (s *Service) Export(ctx context.Context, id string, kind ExportKind) (*Export, error) {
	if kind != ExportXLSX && kind != ExportCSV {
		return nil, fmt.Errorf("unsupported export kind %q", kind)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	log := logging.WithFields(ctx, "job_id", id, "format_id", job.FormatID)

	switch job.Status {
	case StatusParsed:
	case StatusExported:
		if existing, _ := s.files.OutputPath(id, string(kind)); existing == job.OutputPath && s.files.Exists(existing) {
			return s.export(job, existing, kind), nil
		}
	default:
		return nil, fmt.Errorf("%w: job %s is %s", ErrNotExportable, id, job.Status)
	}

	path, err := s.render(job, kind)
	if err != nil {
		if job.Status == StatusExported {
			return nil, err
		}
		return nil, s.fail(ctx, job, "export", err)
	}

	if job.Status == StatusParsed {
		if err := job.MarkExported(path); err != nil {
			return nil, s.fail(ctx, job, "export", err)
		}
		if err := s.persist(ctx, job); err != nil {
			return nil, s.fail(ctx, job, "export", err)
		}
	}
	log.Info("job exported", "kind", kind, "path", path)

	return s.export(job, path, kind), nil
}

func (s *Service) render(job *Job, kind ExportKind) (string, error) {
	if !s.files.Exists(job.InputPath) {
		return "", ErrMissingInput
	}

	table, err := s.parse(job)
	if err != nil {
		return "", err
	}
	normalized, currency := normalize.Normalize(job.FormatID, table)

	path, err := s.files.OutputPath(job.ID, string(kind))
	if err != nil {
		return "", err
	}

	switch kind {
	case ExportCSV:
		w := &writer.CSVWriter{IncludeHeader: s.csvHeader, Metadata: metadata(job)}
		err = w.WriteToFile(path, normalized, currency)
	default:
		err = writer.Render(normalized, currency, path)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

func metadata(job *Job) writer.Metadata {
	period := ""
	if job.DateFrom != "" || job.DateTo != "" {
		period = job.DateFrom + " to " + job.DateTo
	}
	return writer.Metadata{
		Bank:        job.Bank,
		ProductType: job.ProductType,
		Account:     job.Account,
		Currency:    job.Currency,
		Period:      period,
	}
}

func (s *Service) export(job *Job, path string, kind ExportKind) *Export {
	return &Export{
		Job:      job,
		Path:     path,
		FileName: storage.ExportFileName(job.Bank, job.ProductType, job.DateFrom, job.DateTo, string(kind)),
	}
}

// persist writes job and refreshes it with the stored version.
func (s *Service) persist(ctx context.Context, job *Job) error {
	job.UpdatedAt = s.now().UTC()
	stored, err := s.store.Update(ctx, job)
	if err != nil {
		return err
	}
	*job = *stored
	return nil
}

// fail marks job failed, persists it and returns the error to report.
// Errors other than the pipeline's own kinds are wrapped in *UnexpectedError.
func (s *Service) fail(ctx context.Context, job *Job, stage string, cause error) error {
	err := classify(stage, cause)
	log := logging.WithFields(ctx, "job_id", job.ID, "format_id", job.FormatID, "stage", stage)

	if ferr := job.Fail(err.Error()); ferr != nil {
		log.Warn("job not marked failed", "error", ferr)
		return err
	}
	if perr := s.persist(ctx, job); perr != nil {
		log.Error("persisting failed job", "error", perr)
	}
	log.Warn("job failed", "error", err)
	return err
}

func classify(stage string, err error) error {
	var (
		de  *detect.DetectionError
		npe *parser.NoParserError
		ere *EmptyResultError
		ue  *UnexpectedError
	)
	switch {
	case errors.As(err, &de), errors.As(err, &npe), errors.As(err, &ere), errors.As(err, &ue):
		return err
	case errors.Is(err, ErrMissingInput):
		return err
	}
	return &UnexpectedError{Stage: stage, Err: err}
}
