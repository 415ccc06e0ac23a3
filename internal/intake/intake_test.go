package intake

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grandlivre-dev/grandlivre/internal/model"
)

const desjardinsSample = `Folio,Date,Type,Description,Debit,Credit,Solde
00123,2026-03-02,RET,VIDEOTRON LTEE,"90,85",,1200.00
00123,2026-03-05,DEP,DEPOT CLIENT,,"2 500,00",3700.00
00123,2026-03-09,RET,TIM HORTONS #204,6.25,,3693.75
`

const ofxSample = `OFXHEADER:100
DATA:OFXSGML

<OFX>
<BANKTRANLIST>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20260302120000[-5:EST]
<TRNAMT>-90.85
<FITID>D20260302-01
<NAME>VIDEOTRON LTEE
<MEMO>Facture mars
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20260305
<TRNAMT>2500.00
<FITID>D20260305-01
<NAME>DEPOT CLIENT
</STMTTRN>
</BANKTRANLIST>
</OFX>
`

func TestDesjardinsParser_ParsesRows(t *testing.T) {
	p := &DesjardinsParser{}
	txns, err := p.Parse(strings.NewReader(desjardinsSample))
	require.NoError(t, err)
	require.Len(t, txns, 3)

	// Debit with a French decimal comma comes out negative.
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), txns[0].Date)
	assert.Equal(t, "VIDEOTRON LTEE", txns[0].Description)
	assert.Equal(t, "-90.85", txns[0].Amount.StringFixed(2))
	assert.Equal(t, "RET", txns[0].Type)

	// Credit with a thousands space stays positive.
	assert.Equal(t, "2500.00", txns[1].Amount.StringFixed(2))

	// Plain decimal point works too.
	assert.Equal(t, "-6.25", txns[2].Amount.StringFixed(2))
}

func TestDesjardinsParser_RejectsBadRows(t *testing.T) {
	p := &DesjardinsParser{}

	_, err := p.Parse(strings.NewReader(
		"Folio,Date,Type,Description,Debit,Credit,Solde\n00123,2026-03-02,RET,X,5.00,5.00,0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both debit")

	_, err = p.Parse(strings.NewReader(
		"Folio,Date,Type,Description,Debit,Credit,Solde\n00123,2026-03-02,RET,X,,,0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither debit nor credit")
}

func TestOFXParser_ParsesStatements(t *testing.T) {
	p := &OFXParser{}
	txns, err := p.Parse(strings.NewReader(ofxSample))
	require.NoError(t, err)
	require.Len(t, txns, 2)

	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), txns[0].Date)
	assert.Equal(t, "-90.85", txns[0].Amount.StringFixed(2))
	assert.Equal(t, "D20260302-01", txns[0].FITID)
	assert.Equal(t, "VIDEOTRON LTEE Facture mars", txns[0].Description)
	assert.Equal(t, "DEBIT", txns[0].Type)

	assert.Equal(t, "DEPOT CLIENT", txns[1].Description)
}

func TestOFXParser_MissingDateFails(t *testing.T) {
	p := &OFXParser{}
	_, err := p.Parse(strings.NewReader("<STMTTRN>\n<TRNAMT>-5.00\n</STMTTRN>\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DTPOSTED")
}

func TestKey_FITIDWinsOverFallback(t *testing.T) {
	tx := BankTransaction{
		Date:        time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Description: "VIDEOTRON LTEE FACTURE INTERNET MARS",
		Amount:      decimal.RequireFromString("-90.85"),
		FITID:       "D20260302-01",
	}
	assert.Equal(t, "fitid:D20260302-01", Key(tx))

	tx.FITID = ""
	assert.Equal(t, "2026-03-02:-90.85:VIDEOTRON LTEE FACTU", Key(tx))
}

func TestFilterNew_DropsKnownAndIntraBatchDuplicates(t *testing.T) {
	a := BankTransaction{
		Date:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Amount: decimal.RequireFromString("-90.85"),
		FITID:  "A",
	}
	b := a
	b.FITID = "B"

	known := map[string]bool{"fitid:A": true}
	fresh, dups := FilterNew([]BankTransaction{a, b, b}, known)
	require.Len(t, fresh, 1)
	assert.Equal(t, "B", fresh[0].FITID)
	assert.Equal(t, 2, dups)
}

func TestKnownKeys_ReadsImportMeta(t *testing.T) {
	tx := Build(BankTransaction{
		Date:        time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Description: "VIDEOTRON",
		Amount:      decimal.RequireFromString("-90.85"),
		FITID:       "A",
	}, "Assets:Bank:Checking")

	known := KnownKeys([]model.Directive{tx})
	assert.True(t, known["fitid:A"])
}

func TestBuild_PairsBankWithUnclassified(t *testing.T) {
	tx := Build(BankTransaction{
		Date:        time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Description: "VIDEOTRON LTEE",
		Amount:      decimal.RequireFromString("-90.85"),
	}, "Assets:Bank:Checking")

	assert.Equal(t, model.FlagCleared, tx.Flag)
	assert.Equal(t, "VIDEOTRON LTEE", tx.Payee)
	require.Len(t, tx.Postings, 2)
	assert.Equal(t, "Assets:Bank:Checking", tx.Postings[0].Account)
	assert.Equal(t, "-90.85 CAD", tx.Postings[0].Units.String())
	assert.Equal(t, model.AccountUnclassified, tx.Postings[1].Account)
	assert.True(t, tx.Balances())
}

func TestRegistry_ForFile(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, "desjardins", r.ForFile("mars.CSV", "desjardins").Format())
	assert.Equal(t, "ofx", r.ForFile("mars.qfx", "desjardins").Format())
	assert.Nil(t, r.ForFile("notes.txt", "desjardins"))

	assert.Panics(t, func() { r.Register(&OFXParser{}) })
}

func TestScanAndMarkProcessed(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "import"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "import", "mars.csv"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "import", "notes.txt"), []byte("x"), 0o644))

	files, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "mars.csv", files[0].Name)

	require.NoError(t, MarkProcessed(root, "mars.csv"))
	files, err = Scan(root)
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = os.Stat(filepath.Join(root, "import", "processed", "mars.csv"))
	require.NoError(t, err)
}

func TestScan_MissingDirIsEmpty(t *testing.T) {
	files, err := Scan(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, files)
}
