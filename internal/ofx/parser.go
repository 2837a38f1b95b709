// Package ofx imports transactions from OFX/QFX exports. Banks that
// offer OFX give exact, machine-readable data, so this path bypasses
// text extraction entirely.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tech1ee/finuts/internal/common"
	"github.com/tech1ee/finuts/internal/model"
)

// Parser reads OFX/QFX files into imported transactions.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates an OFX parser.
func NewParser() *Parser {
	return &Parser{logger: slog.Default().With("component", "ofx")}
}

var (
	severityRe = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	openTagRe  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocess fixes formatting quirks seen in real bank exports: leading
// blank lines, mixed-case SEVERITY values, and SGML tags missing their
// closing bracket.
func (p *Parser) preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRe.ReplaceAllStringFunc(content, strings.ToUpper)
	content = openTagRe.ReplaceAllString(content, "$1>")
	return content
}

// ParseFile parses an OFX/QFX stream. Statements that fail to convert are
// skipped with a warning; an input yielding no transactions at all is an
// error.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]model.ImportedTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocess(string(content))))
	if err != nil {
		return nil, fmt.Errorf("parsing OFX file: %w", err)
	}

	var txns []model.ImportedTransaction
	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		accountID := string(stmt.BankAcctFrom.AcctID)
		currency := stmt.CurDef.String()
		for _, ofxTx := range stmt.BankTranList.Transactions {
			txns = append(txns, p.convert(ofxTx, accountID, currency))
		}
	}
	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		accountID := string(stmt.CCAcctFrom.AcctID)
		currency := stmt.CurDef.String()
		for _, ofxTx := range stmt.BankTranList.Transactions {
			txns = append(txns, p.convert(ofxTx, accountID, currency))
		}
	}

	if len(txns) == 0 {
		return nil, common.ErrNoTransactions
	}
	p.logger.Info("Parsed OFX file", "transactions", len(txns))
	return txns, nil
}

// convert maps one OFX transaction. OFX amounts are signed decimals with
// debits negative, matching the signed minor-unit convention used
// everywhere else.
func (p *Parser) convert(ofxTx ofxgo.Transaction, accountID, currency string) model.ImportedTransaction {
	amountFloat, _ := ofxTx.TrnAmt.Float64()
	minor := decimal.NewFromFloat(amountFloat).Shift(2).Round(0).IntPart()

	id := string(ofxTx.FiTID)
	if id == "" {
		id = uuid.NewString()
	}

	return model.ImportedTransaction{
		ID:          id,
		Date:        ofxTx.DtPosted.Time,
		AccountID:   accountID,
		Description: strings.TrimSpace(string(ofxTx.Name)),
		Merchant:    merchantName(ofxTx),
		Currency:    currency,
		Source:      model.SourceRuleBased,
		Confidence:  1.0, // exact machine-readable data
		AmountMinor: minor,
	}
}

var merchantPrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
}

// merchantName picks the cleanest merchant string the record offers.
func merchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}
	name := strings.TrimSpace(string(tx.Name))
	if name == "" {
		name = strings.TrimSpace(string(tx.Memo))
	}
	upper := strings.ToUpper(name)
	for _, prefix := range merchantPrefixes {
		if strings.HasPrefix(upper, prefix) {
			name = strings.TrimSpace(name[len(prefix):])
			break
		}
	}
	return name
}
