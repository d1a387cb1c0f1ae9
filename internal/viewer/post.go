package viewer

import (
	"fmt"
	"strings"
)

// Post is the text of a rendered post and where it was seen.
type Post struct {
	Source  string
	Content string
}

func (p Post) String() string {
	return fmt.Sprintf("source: %s\ncontent: %s\n", p.Source, p.Content)
}

// ContainsKeyword reports whether the post body mentions keyword outside of a
// hashtag, using the same rule the filter's selector applies.
func (p Post) ContainsKeyword(keyword string) bool {
	return strings.Contains(p.Content, keyword) && !strings.Contains(p.Content, "#"+keyword)
}
