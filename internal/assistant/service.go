package assistant

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/kdimtricp/zonewatch/internal/ai"
	"github.com/kdimtricp/zonewatch/internal/database"
	"github.com/kdimtricp/zonewatch/internal/models"
)

// NotSeenResponse is the fixed answer for questions about objects with no
// sighting history. It is returned without consulting the language model.
const NotSeenResponse = "I have not seen that object yet."

// Service answers natural-language questions about object locations. It
// extracts a candidate label from the question, retrieves matching sightings,
// and asks the language model to phrase the answer. The model is best
// effort: when it is missing, unreachable, or erroring the service falls
// back to a templated answer.
type Service struct {
	repo         *database.SightingRepo
	lm           ai.LanguageModel
	historyLimit int
}

func NewService(repo *database.SightingRepo, lm ai.LanguageModel) *Service {
	return &Service{
		repo:         repo,
		lm:           lm,
		historyLimit: 5,
	}
}

func (s *Service) Answer(ctx context.Context, question string) (string, error) {
	labels, err := s.repo.Labels(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list labels: %w", err)
	}

	label := extractLabel(question, labels)
	if label == "" {
		return NotSeenResponse, nil
	}

	history, err := s.repo.QueryByLabel(ctx, label, s.historyLimit)
	if err != nil {
		return "", fmt.Errorf("failed to query sightings: %w", err)
	}
	if len(history) == 0 {
		return NotSeenResponse, nil
	}

	if s.lm != nil && s.lm.IsAvailable(ctx) {
		answer, err := s.lm.AnswerObjectQuestion(ctx, question, factsFromHistory(history))
		if err != nil {
			log.Printf("[ASK] language model failed, falling back to template: %v", err)
		} else {
			return answer, nil
		}
	}

	return templateAnswer(history[0]), nil
}

// Summary describes the current state of the sighting history for the
// status surface.
type Summary struct {
	TotalSightings int64             `json:"total_sightings"`
	Labels         []string          `json:"labels"`
	Recent         []models.Sighting `json:"recent"`
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	labels, err := s.repo.Labels(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.Recent(ctx, 10)
	if err != nil {
		return nil, err
	}
	return &Summary{
		TotalSightings: count,
		Labels:         labels,
		Recent:         recent,
	}, nil
}

// extractLabel picks the known label mentioned in the question, preferring
// the longest match so "cell phone" beats "phone".
func extractLabel(question string, labels []string) string {
	q := strings.ToLower(question)
	best := ""
	for _, label := range labels {
		if label == "" {
			continue
		}
		if strings.Contains(q, strings.ToLower(label)) && len(label) > len(best) {
			best = label
		}
	}
	return best
}

func templateAnswer(s models.Sighting) string {
	return fmt.Sprintf("I last saw %s in the %s at %s with %.0f%% confidence.",
		s.Label, s.ZoneName,
		s.Timestamp.Local().Format("Jan 2, 2006 15:04:05"),
		s.Confidence*100)
}

// factsFromHistory condenses a single-label history (most recent first) to
// one fact per zone, keeping the latest sighting and a per-zone count.
func factsFromHistory(history []models.Sighting) []ai.SightingFact {
	var facts []ai.SightingFact
	index := make(map[string]int)
	for _, s := range history {
		if i, ok := index[s.ZoneName]; ok {
			facts[i].Count++
			continue
		}
		index[s.ZoneName] = len(facts)
		facts = append(facts, ai.SightingFact{
			Label:      s.Label,
			Zone:       s.ZoneName,
			Timestamp:  s.Timestamp,
			Confidence: s.Confidence,
			Count:      1,
		})
	}
	return facts
}
