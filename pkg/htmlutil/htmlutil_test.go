package htmlutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func TestTokens(t *testing.T) {
	table := []struct {
		name     string
		fragment string
		expected []string
	}{
		{
			name: "result fragment",
			fragment: `<p><b>Phone Number:</b> 16502530000<br/>
<b>Carrier:</b>  Google (Grand Central) - SVR  <br/>
<b>Is Wireless:</b> n<br/></p>`,
			expected: []string{
				"Phone Number:", "16502530000",
				"Carrier:", "Google (Grand Central) - SVR",
				"Is Wireless:", "n",
			},
		},
		{
			name:     "plain text",
			fragment: "  Invalid captcha  ",
			expected: []string{"Invalid captcha"},
		},
		{
			name:     "unbalanced markup",
			fragment: "<b>Carrier:<i> X",
			expected: []string{"Carrier:", "X"},
		},
		{
			name:     "scripts are skipped",
			fragment: "<script>var x = 1;</script><b>Carrier:</b>X",
			expected: []string{"Carrier:", "X"},
		},
		{
			name:     "empty",
			fragment: "   ",
			expected: nil,
		},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			require.Equal(t, row.expected, Tokens(row.fragment))
		})
	}
}

func TestCollectTextNodes(t *testing.T) {
	nodes, err := html.ParseFragment(strings.NewReader("<b>Carrier:</b> <style>b {}</style><i> X </i>"), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	require.NoError(t, err)

	var tokens []string
	for _, n := range nodes {
		collectTextNodes(n, &tokens)
	}
	require.Equal(t, []string{"Carrier:", "X"}, tokens)
}
