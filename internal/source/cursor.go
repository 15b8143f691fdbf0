package source

import (
	"fmt"
	"strconv"
	"strings"
)

// Cursor locates a traversal position: which target (query or listing) of a
// platform is being paged and the platform's paging token inside it.
// The zero value starts at the first page of the first target.
type Cursor struct {
	Target int
	Token  string
}

func ParseCursor(s string) (Cursor, error) {
	if s == "" {
		return Cursor{}, nil
	}
	idx, token, ok := strings.Cut(s, ":")
	if !ok {
		return Cursor{}, fmt.Errorf("invalid cursor %q", s)
	}
	target, err := strconv.Atoi(idx)
	if err != nil || target < 0 {
		return Cursor{}, fmt.Errorf("invalid cursor target %q", idx)
	}
	return Cursor{Target: target, Token: token}, nil
}

func (c Cursor) String() string {
	if c.Target == 0 && c.Token == "" {
		return ""
	}
	return fmt.Sprintf("%d:%s", c.Target, c.Token)
}

// Advance returns the cursor after the current page. An empty next token
// moves on to the following target; done reports that every target is exhausted.
func (c Cursor) Advance(nextToken string, targets int) (next Cursor, done bool) {
	if nextToken != "" {
		return Cursor{Target: c.Target, Token: nextToken}, false
	}
	if c.Target+1 >= targets {
		return Cursor{}, true
	}
	return Cursor{Target: c.Target + 1}, false
}

// Truncate cuts s to at most limit bytes without splitting a UTF-8 sequence.
func Truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8Start(s[cut]) {
		cut--
	}
	return s[:cut]
}

func utf8Start(b byte) bool {
	return b&0xC0 != 0x80
}
