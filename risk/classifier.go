// Package risk evaluates chat messages for crisis-level language.
//
// A verdict combines two independent signals: an optional semantic one from
// an external emotion-labeling service, and a deterministic keyword scan
// over fixed phrase tiers. The external call is best effort; the keyword
// path is total, so Classify always returns a usable verdict.
package risk

import (
	"context"
	"log/slog"
	"strings"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"

	"haven-chat/domain/chat"
	"haven-chat/errors"
)

const keywordConfidence = 0.7

// Emotion labels grouped by how strongly they correlate with distress.
// Medium-risk emotions only ever escalate to low; product kept that
// asymmetry on purpose, see the thresholds below.
var (
	highRiskEmotions   = map[string]struct{}{"sadness": {}, "fear": {}, "anger": {}}
	mediumRiskEmotions = map[string]struct{}{"disgust": {}, "surprise": {}}
)

// Verdict is the classifier output for one message. It is ephemeral: only
// Level survives, as the riskLevel field of the persisted message.
type Verdict struct {
	IsCrisis          bool
	Level             chat.RiskLevel
	DetectedEmotions  []string
	TriggeredKeywords []string
	Confidence        float64
	Language          string
}

type tierMatcher struct {
	level   chat.RiskLevel
	phrases []string
	machine *goahocorasick.Machine
}

type Classifier struct {
	matchers []tierMatcher
	emotions EmotionClassifier
	log      *slog.Logger
}

// NewClassifier builds one Aho-Corasick automaton per severity tier.
// Patterns are lowercased once at build time; inputs are lowercased per
// message.
func NewClassifier(emotions EmotionClassifier, log *slog.Logger) (*Classifier, error) {
	var matchers []tierMatcher
	for _, t := range tiers() {
		if len(t.phrases) == 0 {
			return nil, errors.ErrEmptyPhrases
		}
		patterns := make([][]rune, len(t.phrases))
		for i, p := range t.phrases {
			patterns[i] = []rune(strings.ToLower(p))
		}
		m := new(goahocorasick.Machine)
		if err := m.Build(patterns); err != nil {
			return nil, err
		}
		matchers = append(matchers, tierMatcher{level: t.level, phrases: t.phrases, machine: m})
	}
	return &Classifier{matchers: matchers, emotions: emotions, log: log}, nil
}

// Classify evaluates one message. It never returns an error: when the
// semantic signal is unreachable, unauthorized, or empty, the verdict is
// exactly the keyword-scan result.
func (c *Classifier) Classify(ctx context.Context, text string) Verdict {
	keywordLevel, triggered := c.scanKeywords(text)

	verdict := Verdict{
		Level:             keywordLevel,
		TriggeredKeywords: triggered,
		Language:          whatlanggo.Detect(text).Lang.Iso6391(),
	}
	if len(triggered) > 0 {
		verdict.Confidence = keywordConfidence
	}

	// The external call runs even for empty text; the service may still
	// label it, and failure costs nothing.
	signal := c.emotions.ClassifyEmotions(ctx, text)
	if signal.Available && len(signal.Emotions) > 0 {
		semanticLevel, maxScore, labels := deriveFromEmotions(signal.Emotions)
		verdict.Level = chat.MaxRisk(semanticLevel, keywordLevel)
		verdict.DetectedEmotions = labels
		if maxScore > verdict.Confidence {
			verdict.Confidence = maxScore
		}
	}

	verdict.IsCrisis = verdict.Level != chat.RiskNone

	if verdict.IsCrisis {
		c.log.Info("crisis language detected",
			"risk_level", verdict.Level,
			"lang", verdict.Language,
			"keywords", len(verdict.TriggeredKeywords),
			"emotions", len(verdict.DetectedEmotions),
			"confidence", verdict.Confidence,
		)
	}
	return verdict
}

// scanKeywords returns the highest-severity tier with at least one match and
// the matched phrases, recorded tier by tier in phrase-list order.
func (c *Classifier) scanKeywords(text string) (chat.RiskLevel, []string) {
	lowered := []rune(strings.ToLower(text))

	level := chat.RiskNone
	var triggered []string
	for _, m := range c.matchers {
		hits := m.machine.MultiPatternSearch(lowered, false)
		if len(hits) == 0 {
			continue
		}
		if level == chat.RiskNone {
			level = m.level
		}
		matched := make(map[string]struct{}, len(hits))
		for _, h := range hits {
			matched[string(h.Word)] = struct{}{}
		}
		for _, p := range m.phrases {
			if _, ok := matched[strings.ToLower(p)]; ok {
				triggered = append(triggered, p)
			}
		}
	}
	return level, triggered
}

// deriveFromEmotions maps emotion scores to a risk level using fixed
// thresholds and reports the maximum score seen plus the labels in service
// order.
func deriveFromEmotions(emotions []EmotionScore) (chat.RiskLevel, float64, []string) {
	level := chat.RiskNone
	maxScore := 0.0
	labels := make([]string, 0, len(emotions))

	for _, e := range emotions {
		labels = append(labels, e.Label)
		if e.Score > maxScore {
			maxScore = e.Score
		}

		if _, ok := highRiskEmotions[e.Label]; ok {
			switch {
			case e.Score > 0.7:
				level = chat.MaxRisk(level, chat.RiskHigh)
			case e.Score > 0.5:
				level = chat.MaxRisk(level, chat.RiskMedium)
			}
			continue
		}
		if _, ok := mediumRiskEmotions[e.Label]; ok && e.Score > 0.6 {
			level = chat.MaxRisk(level, chat.RiskLow)
		}
	}
	return level, maxScore, labels
}
