package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/examprep-api/internal/dto"
	"github.com/noah-isme/examprep-api/internal/models"
	appErrors "github.com/noah-isme/examprep-api/pkg/errors"
	"github.com/noah-isme/examprep-api/pkg/llm"
)

const (
	chatHistoryLimit   = 10
	relatedQuestionTop = 3
	weakAreaSample     = 10

	tutorSystemPrompt = `You are an expert AI tutor helping students understand educational concepts. Keep the conversation context, answer clearly and encourage learning. When asked for resources, suggest specific books, videos or websites. Keep responses concise but informative.`
	explainSystemPrompt = `You are an expert educational AI tutor. Always respond with valid JSON.`
	tipsSystemPrompt    = `You are a helpful study advisor. Always respond with valid JSON.`

	fallbackChatReply = "I'm sorry, I'm having trouble responding right now. Please try asking your question again, or refer to your course materials for additional help."
)

type chatCompleter interface {
	Enabled() bool
	Chat(ctx context.Context, req llm.ChatRequest) (string, error)
}

type relatedFinder interface {
	Related(ctx context.Context, text, subjectID string, topK int) ([]string, error)
}

type subjectLookup interface {
	FindBySubjectID(ctx context.Context, subjectID string) (*models.Exam, error)
}

type answerHistory interface {
	ListByUserExam(ctx context.Context, userID, examID string) ([]models.ProgressRecord, error)
	RecentAnswers(ctx context.Context, userID, subjectID string, limit int) ([]models.AnswerEvent, error)
}

// AIService generates explanations, tutor replies and study tips. Every
// feature degrades to canned content when the provider is absent or fails.
type AIService struct {
	llm       chatCompleter
	questions questionLoader
	exams     subjectLookup
	history   answerHistory
	related   relatedFinder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAIService constructs an AIService. related may be nil.
func NewAIService(client chatCompleter, questions questionLoader, exams subjectLookup, history answerHistory, related relatedFinder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AIService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &AIService{
		llm:       client,
		questions: questions,
		exams:     exams,
		history:   history,
		related:   related,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

func (s *AIService) available() bool {
	return s.llm != nil && s.llm.Enabled()
}

// Explain returns a generated explanation for a question, or the stored one
// when generation is unavailable.
func (s *AIService) Explain(ctx context.Context, questionID string, req dto.ExplanationRequest) (*dto.ExplanationResponse, error) {
	q, err := s.loadQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	resp := &dto.ExplanationResponse{QuestionID: q.ID, Explanation: storedOrFallbackExplanation(q)}
	if !s.available() {
		s.metrics.RecordAIRequest("explanation", true)
		return resp, nil
	}

	subject := "General"
	if exam, err := s.exams.FindBySubjectID(ctx, q.SubjectID); err == nil {
		if sub, ok := exam.Subjects.Find(q.SubjectID); ok {
			subject = sub.Name
		}
	}

	raw, err := s.llm.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: explainSystemPrompt},
			{Role: "user", Content: explanationPrompt(q, req.SelectedAnswer, subject)},
		},
		Temperature: 0.7,
		MaxTokens:   800,
		JSONMode:    true,
	})
	if err != nil {
		s.logger.Warn("explanation generation failed", zap.String("question_id", q.ID), zap.Error(err))
		s.metrics.RecordAIRequest("explanation", true)
		return resp, nil
	}
	generated, ok := parseExplanation(raw)
	if !ok {
		s.logger.Warn("explanation response was not usable", zap.String("question_id", q.ID))
		s.metrics.RecordAIRequest("explanation", true)
		return resp, nil
	}
	s.metrics.RecordAIRequest("explanation", false)
	resp.Explanation = generated
	resp.Generated = true
	return resp, nil
}

// Chat answers a tutor message using the last ten turns of history and,
// optionally, the question being discussed.
func (s *AIService) Chat(ctx context.Context, user *models.User, req dto.ChatRequest) (*dto.ChatResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	var q *models.Question
	if req.QuestionID != "" {
		loaded, err := s.loadQuestion(ctx, req.QuestionID)
		if err != nil {
			return nil, err
		}
		q = loaded
	}

	resp := &dto.ChatResponse{RelatedQuestions: []string{}}
	if s.related != nil {
		subjectID := ""
		if q != nil {
			subjectID = q.SubjectID
		}
		ids, err := s.related.Related(ctx, req.Message, subjectID, relatedQuestionTop+1)
		if err != nil {
			s.logger.Warn("related question lookup failed", zap.Error(err))
		}
		for _, id := range ids {
			if (q == nil || id != q.ID) && len(resp.RelatedQuestions) < relatedQuestionTop {
				resp.RelatedQuestions = append(resp.RelatedQuestions, id)
			}
		}
	}

	if !s.available() {
		s.metrics.RecordAIRequest("chat", true)
		resp.Reply, resp.Fallback = fallbackChatReply, true
		return resp, nil
	}

	reply, err := s.llm.Chat(ctx, llm.ChatRequest{
		Messages:    chatMessages(req, q),
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil || strings.TrimSpace(reply) == "" {
		s.logger.Warn("tutor chat failed", zap.String("user_id", user.ID), zap.Error(err))
		s.metrics.RecordAIRequest("chat", true)
		resp.Reply, resp.Fallback = fallbackChatReply, true
		return resp, nil
	}
	s.metrics.RecordAIRequest("chat", false)
	resp.Reply = strings.TrimSpace(reply)
	return resp, nil
}

// StudyTips suggests tips for a subject based on the user's accuracy and the
// tags of recently missed questions.
func (s *AIService) StudyTips(ctx context.Context, user *models.User, subjectID string) (*dto.StudyTipsResponse, error) {
	if !IsValidID(subjectID) {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "Invalid subject ID")
	}
	exam, err := s.exams.FindBySubjectID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	subject, _ := exam.Subjects.Find(subjectID)

	accuracy := 0.0
	records, err := s.history.ListByUserExam(ctx, user.ID, exam.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load progress")
	}
	for _, rec := range records {
		if rec.SubjectID == subjectID {
			rec.Normalize()
			accuracy = rec.AccuracyRate
		}
	}

	resp := &dto.StudyTipsResponse{SubjectID: subjectID, AccuracyRate: accuracy, Tips: fallbackStudyTips(subject.Name)}
	if !s.available() {
		s.metrics.RecordAIRequest("study_tips", true)
		return resp, nil
	}

	weak := s.weakAreas(ctx, user.ID, subjectID)
	raw, err := s.llm.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: tipsSystemPrompt},
			{Role: "user", Content: studyTipsPrompt(subject.Name, accuracy, weak)},
		},
		Temperature: 0.8,
		MaxTokens:   400,
		JSONMode:    true,
	})
	if err != nil {
		s.logger.Warn("study tips generation failed", zap.String("subject_id", subjectID), zap.Error(err))
		s.metrics.RecordAIRequest("study_tips", true)
		return resp, nil
	}
	var parsed struct {
		Tips []string `json:"tips"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil || len(parsed.Tips) == 0 {
		s.metrics.RecordAIRequest("study_tips", true)
		return resp, nil
	}
	s.metrics.RecordAIRequest("study_tips", false)
	resp.Tips = parsed.Tips
	resp.Generated = true
	return resp, nil
}

func (s *AIService) weakAreas(ctx context.Context, userID, subjectID string) []string {
	events, err := s.history.RecentAnswers(ctx, userID, subjectID, weakAreaSample)
	if err != nil {
		s.logger.Warn("failed to load recent answers", zap.Error(err))
		return nil
	}
	seen := map[string]struct{}{}
	var areas []string
	for _, ev := range events {
		if ev.IsCorrect {
			continue
		}
		q, err := s.questions.FindByID(ctx, ev.QuestionID)
		if err != nil {
			continue
		}
		for _, tag := range q.Tags {
			if _, dup := seen[tag]; !dup {
				seen[tag] = struct{}{}
				areas = append(areas, tag)
			}
		}
	}
	return areas
}

func (s *AIService) loadQuestion(ctx context.Context, id string) (*models.Question, error) {
	if !IsValidID(id) {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "Invalid question ID")
	}
	q, err := s.questions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Question not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load question")
	}
	if !q.Published() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Question not found")
	}
	return q, nil
}

func chatMessages(req dto.ChatRequest, q *models.Question) []llm.Message {
	system := tutorSystemPrompt
	if q != nil {
		system += fmt.Sprintf("\n\nOriginal question context:\n- Question: %s\n- Correct answer: %s", q.Text, optionText(q, q.CorrectAnswer))
	}
	history := req.History
	// keep room for the new message inside the window
	if len(history) > chatHistoryLimit-1 {
		history = history[len(history)-(chatHistoryLimit-1):]
	}
	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: "system", Content: system})
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	return append(msgs, llm.Message{Role: "user", Content: req.Message})
}

func explanationPrompt(q *models.Question, selected, subject string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a clear explanation for this %s question at %s difficulty.\n\n", subject, q.Difficulty)
	fmt.Fprintf(&b, "Question: %s\n\nOptions:\n", q.Text)
	for _, opt := range q.Options {
		fmt.Fprintf(&b, "%s: %s\n", opt.ID, opt.Text)
	}
	fmt.Fprintf(&b, "\nCorrect answer: %s - %s\n", q.CorrectAnswer, optionText(q, q.CorrectAnswer))
	if selected != "" {
		verdict := "INCORRECT"
		if q.IsCorrect(selected) {
			verdict = "CORRECT"
		}
		fmt.Fprintf(&b, "Student answered: %s - %s (%s)\n", selected, optionText(q, selected), verdict)
	}
	b.WriteString(`
Respond with JSON: {"reasoning": ["step", "..."], "concept": "...", "sources": ["..."], "bias_check": "...", "reflection": "..."}`)
	return b.String()
}

func studyTipsPrompt(subject string, accuracy float64, weak []string) string {
	weakText := "None identified"
	if len(weak) > 0 {
		weakText = strings.Join(weak, ", ")
	}
	return fmt.Sprintf(`Generate 3-5 personalized study tips for a student studying %s.
Current accuracy: %.1f%%
Weak areas: %s
Respond with JSON: {"tips": ["tip 1", "tip 2", "tip 3"]}`, subject, accuracy, weakText)
}

// parseExplanation accepts the model output only when every field is present.
func parseExplanation(raw string) (models.Explanation, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &fields); err != nil {
		return models.Explanation{}, false
	}
	for _, key := range []string{"reasoning", "concept", "sources", "bias_check", "reflection"} {
		if _, ok := fields[key]; !ok {
			return models.Explanation{}, false
		}
	}
	var out models.Explanation
	out.Reasoning = stringOrList(fields["reasoning"])
	out.Sources = stringOrList(fields["sources"])
	_ = json.Unmarshal(fields["concept"], &out.Concept)
	_ = json.Unmarshal(fields["bias_check"], &out.BiasCheck)
	_ = json.Unmarshal(fields["reflection"], &out.Reflection)
	return out, true
}

func stringOrList(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return []string{single}
	}
	return []string{}
}

func optionText(q *models.Question, id string) string {
	for _, opt := range q.Options {
		if opt.ID == id {
			return opt.Text
		}
	}
	return "Unknown"
}

func storedOrFallbackExplanation(q *models.Question) models.Explanation {
	if q.Explanation.Concept != "" || len(q.Explanation.Reasoning) > 0 {
		return q.Explanation
	}
	return models.Explanation{
		Reasoning: []string{
			"This question tests your understanding of the key concepts in this subject area.",
			"Review the question carefully and consider each option systematically.",
			"The correct answer demonstrates the proper application of the relevant principles.",
		},
		Concept:    "Core subject knowledge and application",
		Sources:    []string{"Standard textbook for this subject", "Course materials and lecture notes"},
		BiasCheck:  "No significant biases detected in this question.",
		Reflection: "Understanding this concept will help you tackle similar problems in the future. Keep practicing!",
	}
}

func fallbackStudyTips(subject string) []string {
	if subject == "" {
		subject = "this subject"
	}
	return []string{
		fmt.Sprintf("Review the fundamental concepts in %s regularly", subject),
		"Practice with a variety of question types to build confidence",
		"Create summary notes for key topics and formulas",
		"Take practice tests to identify areas for improvement",
		"Join study groups or seek help from tutors when needed",
	}
}
