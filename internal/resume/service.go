package resume

import (
	"context"
	"log/slog"
	"strings"

	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/llm"
)

// maxPromptChars bounds how much resume text goes into one prompt.
const maxPromptChars = 20000

const skillsPrompt = `You are a resume analysis assistant. Read the resume text below and list the
candidate's skills: technologies, languages, frameworks, tools and notable
soft skills that are explicitly present in the text.

Respond with JSON only — no markdown fences, no commentary — matching:
{"skills": ["skill one", "skill two"]}

If a skill is not mentioned in the resume, do not invent it.

Resume text:
{{RESUME_TEXT}}`

// SkillReport is the structured result of a resume analysis.
type SkillReport struct {
	Skills []string `json:"skills"`
}

// Service turns uploaded resume documents into skill reports.
type Service struct {
	llm    *llm.Client
	logger *slog.Logger
}

// NewService wires the extractor to an LLM client.
func NewService(client *llm.Client, logger *slog.Logger) *Service {
	return &Service{
		llm:    client,
		logger: logger.With("component", "resume"),
	}
}

// ExtractSkills parses the uploaded file, rejects likely-scanned documents
// and asks the model for the structured skill list.
func (s *Service) ExtractSkills(ctx context.Context, filename string, data []byte) (*SkillReport, error) {
	text, err := ExtractText(filename, data)
	if err != nil {
		return nil, err
	}
	if LooksScannedOrEmpty(text) {
		return nil, ErrLooksScanned
	}
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}

	prompt := strings.ReplaceAll(skillsPrompt, "{{RESUME_TEXT}}", text)

	var report SkillReport
	if err := s.llm.GenerateJSON(ctx, prompt, &report); err != nil {
		return nil, err
	}
	if report.Skills == nil {
		return nil, &llm.ResponseError{Msg: "model output is missing the skills field"}
	}

	s.logger.Info("resume analysed", "file", filename, "skills", len(report.Skills))
	return &report, nil
}
