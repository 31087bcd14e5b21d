package document

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/common"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/service"
)

// OFXParser parses OFX/QFX statement downloads. The statement is rendered
// into normalized text lines so the rest of the pipeline stays uniform
// across document formats.
type OFXParser struct{}

// NewOFXParser creates an OFX/QFX statement parser.
func NewOFXParser() *OFXParser {
	return &OFXParser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *OFXParser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// Fix mixed-case SEVERITY values (should be INFO, WARN, or ERROR)
	severityRegex := regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// Fix missing closing angle brackets in SGML-style OFX files
	tagFixRegex := regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

// Parse reads an OFX/QFX statement and renders it as one transaction line
// per statement entry: "date<TAB>description<TAB>amount".
func (p *OFXParser) Parse(_ context.Context, r io.Reader) (*service.ParsedDocument, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnreadableDocument, err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("%w: not a valid OFX statement: %v", common.ErrUnreadableDocument, err)
	}

	var lines []string
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			lines = append(lines, p.renderStatement(stmt.BankTranList)...)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			lines = append(lines, p.renderStatement(stmt.BankTranList)...)
		}
	}

	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: OFX statement carries no transactions", common.ErrUnsuitableDocument)
	}

	slog.Info("Parsed OFX statement",
		"lines", len(lines),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	text := strings.Join(lines, "\n")
	return &service.ParsedDocument{
		Text:      text,
		PageCount: pageCount(text),
		Stats:     ComputeStats(text),
	}, nil
}

func (p *OFXParser) renderStatement(list *ofxgo.TransactionList) []string {
	if list == nil {
		return nil
	}

	lines := make([]string, 0, len(list.Transactions))
	for _, ofxTx := range list.Transactions {
		amount, _ := ofxTx.TrnAmt.Float64()
		lines = append(lines, fmt.Sprintf("%s\t%s\t%.2f",
			ofxTx.DtPosted.Time.Format("2006-01-02"),
			p.describe(ofxTx),
			amount))
	}
	return lines
}

// describe picks the most informative name the OFX entry offers.
func (p *OFXParser) describe(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}
	name := strings.TrimSpace(string(tx.Name))
	if memo := strings.TrimSpace(string(tx.Memo)); memo != "" && len(memo) > len(name) {
		name = memo
	}
	if name == "" {
		name = fmt.Sprintf("%v", tx.TrnType)
	}
	return name
}
