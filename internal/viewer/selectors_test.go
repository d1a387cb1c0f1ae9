package viewer

import (
	"context"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestXPathLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"售價", "'售價'"},
		{"", "''"},
		{`say "hi"`, `'say "hi"'`},
		{"it's", `"it's"`},
		{`it's "x"`, `concat('it', "'", 's "x"')`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, xpathLiteral(tt.in))
		})
	}
}

func TestSelectors(t *testing.T) {
	assert.Equal(t, "//input[@placeholder='搜尋 Facebook']", searchInputXPath("搜尋 Facebook"))
	assert.Equal(t, "//div[text()='查看更多']", showMoreXPath("查看更多"))
	assert.Equal(t,
		"//div[@aria-describedby and .//div[@data-ad-preview='message'][contains(., '3房') and not(contains(., '#3房'))]]",
		postXPath("3房"))
}

// FuzzPostSelector checks that any printable keyword, quotes included,
// selects a post that consists of exactly that keyword.
func FuzzPostSelector(f *testing.F) {
	f.Add([]byte(`it's "fine"`))
	f.Add([]byte("售價"))
	f.Fuzz(func(t *testing.T, data []byte) {
		keyword, err := fuzz.NewConsumer(data).GetString()
		if err != nil || !printable(keyword) || strings.TrimSpace(keyword) != keyword || keyword == "" {
			return
		}

		d := site{posts: []string{keyword, "#"}}.driver(t, "")
		if err := d.Navigate(context.Background(), testGroup); err != nil {
			t.Fatal(err)
		}
		removed, err := NewFilter(d, zap.NewNop()).RemoveMatching(context.Background(), keyword)
		if err != nil {
			t.Fatalf("RemoveMatching(%q): %v", keyword, err)
		}
		if removed < 1 {
			t.Errorf("RemoveMatching(%q) removed nothing", keyword)
		}
	})
}

func printable(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
