package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/examprep-api/internal/models"
	"github.com/noah-isme/examprep-api/pkg/jobs"
	"github.com/noah-isme/examprep-api/pkg/vectorstore"
)

const (
	jobIndexQuestion  = "question.index"
	jobRemoveQuestion = "question.remove"
)

type embedder interface {
	Enabled() bool
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type vectorIndex interface {
	Enabled() bool
	Upsert(ctx context.Context, vectors []vectorstore.Vector) (int64, error)
	Query(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]vectorstore.Match, error)
	Delete(ctx context.Context, ids []string) error
}

type questionLoader interface {
	FindByID(ctx context.Context, id string) (*models.Question, error)
}

// QuestionIndexer keeps the vector index in step with question mutations and
// answers similarity lookups for the tutor.
type QuestionIndexer struct {
	questions questionLoader
	embed     embedder
	index     vectorIndex
	metrics   *MetricsService
	logger    *zap.Logger
	queue     *jobs.Queue
}

// NewQuestionIndexer wires the indexer to its queue. The queue is started by the caller.
func NewQuestionIndexer(questions questionLoader, embed embedder, index vectorIndex, metrics *MetricsService, logger *zap.Logger, cfg jobs.QueueConfig) *QuestionIndexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	ix := &QuestionIndexer{questions: questions, embed: embed, index: index, metrics: metrics, logger: logger}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	ix.queue = jobs.NewQueue("question-indexer", ix.handle, cfg)
	return ix
}

// Enabled reports whether both the embedding provider and the index are configured.
func (ix *QuestionIndexer) Enabled() bool {
	return ix != nil && ix.embed != nil && ix.index != nil && ix.embed.Enabled() && ix.index.Enabled()
}

// Start launches the workers when indexing is enabled.
func (ix *QuestionIndexer) Start(ctx context.Context) {
	if !ix.Enabled() {
		ix.logger.Info("question indexing disabled")
		return
	}
	ix.queue.Start(ctx)
}

// Stop drains the workers.
func (ix *QuestionIndexer) Stop() {
	if ix == nil {
		return
	}
	ix.queue.Stop()
}

// QueueIndex schedules an upsert of the question's embedding.
func (ix *QuestionIndexer) QueueIndex(questionID string) {
	ix.enqueue(jobIndexQuestion, questionID)
}

// QueueRemove schedules removal of the question's vector.
func (ix *QuestionIndexer) QueueRemove(questionID string) {
	ix.enqueue(jobRemoveQuestion, questionID)
}

func (ix *QuestionIndexer) enqueue(kind, questionID string) {
	if !ix.Enabled() {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: kind, Payload: questionID}
	if err := ix.queue.Enqueue(job); err != nil {
		ix.logger.Warn("failed to enqueue index job", zap.String("type", kind), zap.String("question_id", questionID), zap.Error(err))
	}
}

func (ix *QuestionIndexer) handle(ctx context.Context, job jobs.Job) error {
	questionID, ok := job.Payload.(string)
	if !ok || questionID == "" {
		return nil
	}
	var err error
	switch job.Type {
	case jobIndexQuestion:
		err = ix.indexQuestion(ctx, questionID)
	case jobRemoveQuestion:
		err = ix.index.Delete(ctx, []string{questionID})
	default:
		ix.logger.Warn("unknown index job type", zap.String("type", job.Type))
		return nil
	}
	ix.metrics.RecordIndexJob(job.Type, err)
	return err
}

func (ix *QuestionIndexer) indexQuestion(ctx context.Context, questionID string) error {
	q, err := ix.questions.FindByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// deleted before the job ran
			return nil
		}
		return err
	}
	if !q.Published() {
		return ix.index.Delete(ctx, []string{q.ID})
	}

	vectors, err := ix.embed.Embed(ctx, []string{questionDocument(q)})
	if err != nil {
		return fmt.Errorf("embed question %s: %w", q.ID, err)
	}
	if len(vectors) == 0 {
		return fmt.Errorf("embed question %s: empty response", q.ID)
	}

	_, err = ix.index.Upsert(ctx, []vectorstore.Vector{{
		ID:     q.ID,
		Values: vectors[0],
		Metadata: map[string]any{
			"exam_id":    q.ExamID,
			"subject_id": q.SubjectID,
			"difficulty": string(q.Difficulty),
			"question":   q.Text,
		},
	}})
	return err
}

// Related returns ids of indexed questions similar to text, optionally within one subject.
func (ix *QuestionIndexer) Related(ctx context.Context, text, subjectID string, topK int) ([]string, error) {
	if !ix.Enabled() || strings.TrimSpace(text) == "" {
		return nil, nil
	}
	vectors, err := ix.embed.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	var filter map[string]any
	if subjectID != "" {
		filter = map[string]any{"subject_id": map[string]any{"$eq": subjectID}}
	}
	matches, err := ix.index.Query(ctx, vectors[0], topK, filter)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func questionDocument(q *models.Question) string {
	var b strings.Builder
	b.WriteString(q.Text)
	for _, opt := range q.Options {
		b.WriteString("\n- ")
		b.WriteString(opt.Text)
	}
	if q.Explanation.Concept != "" {
		b.WriteString("\nConcept: ")
		b.WriteString(q.Explanation.Concept)
	}
	return b.String()
}
