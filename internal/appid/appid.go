// Package appid generates human-shareable application identifiers of the
// form PREFIX-TTTT-RRRRR: four base-36 characters from the millisecond clock
// and five random base-36 characters, upper case.
//
// Ids are collision resistant, not collision free. Within one process a
// repeated random fragment for the same clock fragment is redrawn; across
// processes the store's primary key is the final arbiter and callers retry
// on a duplicate.
package appid

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	DefaultPrefix = "HPU"

	stampLen  = 4
	randomLen = 5
)

var randomSpace = big.NewInt(60466176) // 36^5

type Generator struct {
	prefix string
	now    func() time.Time

	mu        sync.Mutex
	lastStamp string
	issued    map[string]struct{}
}

func NewGenerator(prefix string) *Generator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Generator{
		prefix: strings.ToUpper(prefix),
		now:    time.Now,
		issued: make(map[string]struct{}),
	}
}

// New returns a fresh identifier.
func (g *Generator) New() string {
	stamp := stampFragment(g.now())

	g.mu.Lock()
	defer g.mu.Unlock()

	if stamp != g.lastStamp {
		g.lastStamp = stamp
		clear(g.issued)
	}
	for {
		r := randomFragment()
		if _, seen := g.issued[r]; seen {
			continue
		}
		g.issued[r] = struct{}{}
		return g.prefix + "-" + stamp + "-" + r
	}
}

func stampFragment(t time.Time) string {
	s := strings.ToUpper(strconv.FormatInt(t.UnixMilli(), 36))
	if len(s) > stampLen {
		s = s[len(s)-stampLen:]
	}
	return pad(s, stampLen)
}

func randomFragment() string {
	n, err := rand.Int(rand.Reader, randomSpace)
	if err != nil {
		// crypto/rand never fails on supported platforms.
		panic("appid: read random: " + err.Error())
	}
	return pad(strings.ToUpper(n.Text(36)), randomLen)
}

func pad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat("0", n-len(s)) + s
}

// Normalize trims and upper-cases a user supplied identifier so that
// lookups match how ids are printed.
func Normalize(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
