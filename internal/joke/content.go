package joke

import (
	"math/rand"
	"sync"
	"time"
)

// Jokes is the canned content served on a "Y" reply.
var Jokes = []string{
	"What did the cheese say when it looked in the mirror?\n\"Hello-me (Halloumi)\"\n",
	"What kind of cheese do you use to disguise a small horse?\nWhatever kind of cheese is big enough to fit a small horse inside\n",
	"Why did the doctor get fired from his job?\nHe lost his patience(Patients).\n",
	"what do you call a fake noodle? An Impasta.\n",
}

type ContentProvider interface {
	RandomItem() string
}

type randomContent struct {
	mu    sync.Mutex
	rng   *rand.Rand
	items []string
}

// NewRandomContent picks uniformly from items on every call. A nil src is
// seeded from the clock. It panics on an empty list.
func NewRandomContent(items []string, src rand.Source) ContentProvider {
	if len(items) == 0 {
		panic("joke: empty content list")
	}
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	cp := make([]string, len(items))
	copy(cp, items)
	return &randomContent{rng: rand.New(src), items: cp}
}

func (c *randomContent) RandomItem() string {
	c.mu.Lock()
	i := c.rng.Intn(len(c.items))
	c.mu.Unlock()
	return c.items[i]
}
