package quiz

import (
	"math/rand"
	"strings"
	"time"

	"character-quiz-service/internal/domain"
)

const distractorCount = 3

// Builder generates shuffled question sets from quiz content. One question
// is produced per roster character; its options are the answer plus three
// distractors sampled without replacement from the same group.
type Builder struct {
	rnd *rand.Rand
}

func NewBuilder() *Builder {
	return NewBuilderWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewBuilderWithRand allows deterministic shuffles in tests.
func NewBuilderWithRand(rnd *rand.Rand) *Builder {
	return &Builder{rnd: rnd}
}

// Build produces the full question sequence for a roster: every character
// becomes exactly one question, images are resolved from the media list
// (empty when unresolved), and both the option sets and the question order
// are shuffled. Fails with domain.ErrInsufficientRoster when any group has
// fewer than four distinct characters.
func (b *Builder) Build(roster domain.Roster, media []domain.MediaImage) ([]domain.Question, error) {
	groups := roster.GroupLists()
	if len(groups) == 0 {
		return nil, domain.ErrInsufficientRoster
	}

	var questions []domain.Question
	for _, group := range groups {
		// An empty group never reaches drawOptions, so it must be
		// rejected here or the build yields no questions for it.
		if len(group) == 0 {
			return nil, domain.ErrInsufficientRoster
		}
		for _, character := range group {
			options, err := b.drawOptions(character, group)
			if err != nil {
				return nil, err
			}
			questions = append(questions, domain.Question{
				Answer:  character,
				Image:   findCharacterImage(media, character),
				Options: options,
			})
		}
	}

	b.rnd.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})
	return questions, nil
}

// drawOptions samples three distinct distractors without replacement, which
// bounds the draw even for small groups, then shuffles the four options in
// place for display.
func (b *Builder) drawOptions(answer string, group []string) ([]string, error) {
	pool := make([]string, 0, len(group))
	seen := map[string]struct{}{answer: {}}
	for _, c := range group {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		pool = append(pool, c)
	}
	if len(pool) < distractorCount {
		return nil, domain.ErrInsufficientRoster
	}

	options := make([]string, 0, distractorCount+1)
	options = append(options, answer)
	for i := 0; i < distractorCount; i++ {
		j := b.rnd.Intn(len(pool))
		options = append(options, pool[j])
		pool[j] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]
	}

	b.rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return options, nil
}

// findCharacterImage resolves a character's image by case-insensitive
// substring match on the media entry name. A partial media set is not an
// error; unresolved characters get an empty image.
func findCharacterImage(media []domain.MediaImage, character string) string {
	needle := strings.ToLower(character)
	for _, img := range media {
		if strings.Contains(strings.ToLower(img.Name), needle) {
			return img.URL
		}
	}
	return ""
}
