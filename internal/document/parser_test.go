package document

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/common"
)

const sampleStatement = `ACME BANK CREDIT CARD STATEMENT
Statement period: 01/01/2024 - 01/31/2024

01/05/2024  STARBUCKS STORE #1234      $5.75
01/06/2024  SAFEWAY #552               $84.20
01/09/2024  SHELL OIL 57442            $41.00
`

func TestTextParser_Parse(t *testing.T) {
	parser := NewTextParser()

	doc, err := parser.Parse(context.Background(), strings.NewReader(sampleStatement))
	require.NoError(t, err)

	assert.Equal(t, sampleStatement, doc.Text)
	assert.Equal(t, 1, doc.PageCount)
	assert.GreaterOrEqual(t, doc.Stats.DateCount, 3)
	assert.GreaterOrEqual(t, doc.Stats.CurrencyCount, 3)
	assert.Greater(t, doc.Stats.TableDensity, 0.0)
}

func TestTextParser_EmptyDocument(t *testing.T) {
	parser := NewTextParser()

	_, err := parser.Parse(context.Background(), strings.NewReader("   \n  \n"))
	assert.ErrorIs(t, err, common.ErrUnreadableDocument)
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "short text", text: "one line", want: 1},
		{name: "form feeds win", text: "page one\fpage two\fpage three", want: 3},
		{name: "long text by lines", text: strings.Repeat("line\n", 130), want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pageCount(tt.text))
		})
	}
}

func TestComputeStats_CurrencyVariants(t *testing.T) {
	stats := ComputeStats("paid $5 then €3 then ₹200 then Rs. 40 then USD 9")
	assert.Equal(t, 5, stats.CurrencyCount)
}

func TestParserForFile(t *testing.T) {
	_, isOFX := ParserForFile("statement.ofx").(*OFXParser)
	assert.True(t, isOFX)

	_, isOFX = ParserForFile("download.QFX").(*OFXParser)
	assert.True(t, isOFX)

	_, isText := ParserForFile("statement.txt").(*TextParser)
	assert.True(t, isText)

	_, isText = ParserForFile("no-extension").(*TextParser)
	assert.True(t, isText)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "collapses whitespace runs",
			in:   "a   b\t\tc",
			want: "a b c",
		},
		{
			name: "drops blank lines",
			in:   "first\n\n\nsecond\n",
			want: "first\nsecond",
		},
		{
			name: "strips control characters",
			in:   "tran\x00sact\x07ion",
			want: "transaction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}
