package generator

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"

	"storyloom/internal/domain/story"
)

// Collection is a named set of stories.
type Collection struct {
	Name    string       `json:"name"`
	Stories []story.Item `json:"stories"`
}

// LibraryGenerator answers prompts from a built-in collection of tales. It
// needs no network and is the default when no story backend is configured.
type LibraryGenerator struct {
	mu          sync.Mutex
	rnd         *rand.Rand
	collections []Collection
}

// NewLibraryGenerator returns a generator over the built-in collections. A nil
// rnd uses a randomly seeded source.
func NewLibraryGenerator(rnd *rand.Rand) *LibraryGenerator {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &LibraryGenerator{
		rnd:         rnd,
		collections: builtinCollections(),
	}
}

func (l *LibraryGenerator) Collections() []Collection {
	return l.collections
}

// Stories returns every story across collections.
func (l *LibraryGenerator) Stories() []story.Item {
	var all []story.Item
	for _, c := range l.collections {
		all = append(all, c.Stories...)
	}
	return all
}

// Generate picks the tale that best matches the words of the prompt, or a
// random one when nothing matches.
func (l *LibraryGenerator) Generate(ctx context.Context, prompt story.Prompt) (*story.Item, error) {
	prompt, err := prompt.Validate()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stories := l.Stories()
	best, bestScore := -1, 0
	for i, s := range stories {
		if score := matchScore(prompt.Text, s); score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		l.mu.Lock()
		best = l.rnd.IntN(len(stories))
		l.mu.Unlock()
	}

	item := stories[best]
	item.Content = "# " + item.Title + "\n\n" + item.Content
	return &item, nil
}

func matchScore(prompt string, s story.Item) int {
	haystack := strings.ToLower(strings.Join([]string{s.Title, s.Genre, s.Description, s.Content}, " "))
	score := 0
	for _, word := range strings.Fields(strings.ToLower(prompt)) {
		word = strings.Trim(word, ".,!?;:'\"")
		if len(word) < 3 {
			continue
		}
		if strings.Contains(haystack, word) {
			score++
		}
	}
	return score
}

func builtinCollections() []Collection {
	return []Collection{
		{
			Name: "Classic Tales Collection",
			Stories: []story.Item{
				{
					ID:       "goldilocks",
					Title:    "Goldilocks and the Three Bears",
					Author:   "Traditional",
					AgeGroup: "3-6 years",
					Genre:    "Fairy Tale",
					Duration: "5 minutes",
					Content: "Once upon a time, there was a little girl named **Goldilocks** who wandered into the woods.\n\n" +
						"She found a cottage with three bowls of porridge. The first was *too hot*, the second was *too cold*, " +
						"and the third was **just right**.\n\n" +
						"When the three bears came home, Goldilocks woke with a start and ran all the way back to her mother.",
					Description: "A classic tale about curiosity and consequences",
				},
				{
					ID:       "three-pigs",
					Title:    "The Three Little Pigs",
					Author:   "Traditional",
					AgeGroup: "3-7 years",
					Genre:    "Fairy Tale",
					Duration: "6 minutes",
					Content: "Once there were three little pigs who left home to build houses of their own.\n\n" +
						"The first built with *straw*, the second with *sticks*, and the third with **bricks**.\n\n" +
						"The wolf huffed and puffed, but the brick house stood firm, and the three pigs lived safely ever after.",
					Description: "A story about hard work and perseverance",
				},
			},
		},
		{
			Name: "Modern Adventures",
			Stories: []story.Item{
				{
					ID:       "space-cat",
					Title:    "Captain Whiskers' Space Adventure",
					Author:   "Luna Starweaver",
					AgeGroup: "5-9 years",
					Genre:    "Science Fiction",
					Duration: "8 minutes",
					Content: "Captain Whiskers was no ordinary cat. He had his own **spaceship**, the *Purring Comet*.\n\n" +
						"One night a distress call came from the moon of Mews, where the mice had lost their way home among the stars.\n\n" +
						"With a flick of his tail, the captain steered them safely back, and the whole galaxy purred with joy.",
					Description: "A brave cat explores the galaxy",
				},
				{
					ID:       "magic-garden",
					Title:    "The Secret Magic Garden",
					Author:   "Rose Greenthumb",
					AgeGroup: "4-8 years",
					Genre:    "Fantasy",
					Duration: "10 minutes",
					Content: "Behind the old oak tree, Emma discovered a hidden gate covered in *silver ivy*.\n\n" +
						"Inside, the flowers sang softly and a tiny dragon tended the roses.\n\n" +
						"\"Every garden is magic,\" the dragon whispered, \"if you remember to **look closely**.\"",
					Description: "A girl discovers a magical world in her backyard",
				},
			},
		},
	}
}
