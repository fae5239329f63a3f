package rules

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataimport/internal/core"
	"github.com/JonMunkholm/dataimport/internal/reader"
)

// messages returns the rejection messages of err, or nil.
func messages(t *testing.T, err error) []string {
	t.Helper()
	if err == nil {
		return nil
	}
	verr, ok := err.(*core.ValidationError)
	require.True(t, ok, "expected *core.ValidationError, got %T", err)
	return verr.Messages
}

func TestCPF(t *testing.T) {
	tests := []struct {
		in      any
		want    any
		wantMsg string
	}{
		{"31506331840", "315.063.318-40", ""},
		{"437.692.351-69", "437.692.351-69", ""},
		{int64(31506331840), "315.063.318-40", ""},
		{"", "", ""},
		{"1234", nil, "CPF requires at most 11 digits or 14 characters."},
		{"abc.def.ghi-jk", nil, "CPF requires only numbers, allow '.' and '-' for long format."},
		{"111.111.111-11", nil, "Invalid CPF number."},
		{"12345678900", nil, "Invalid CPF number."},
	}

	validate := CPF()
	for _, tt := range tests {
		got, err := validate(tt.in, nil)
		if tt.wantMsg != "" {
			assert.Equal(t, []string{tt.wantMsg}, messages(t, err), "input %v", tt.in)
			continue
		}
		require.NoError(t, err, "input %v", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestDigits(t *testing.T) {
	validate := Digits()

	got, err := validate("00123", nil)
	require.NoError(t, err)
	assert.Equal(t, "00123", got)

	got, err = validate(int64(42), nil)
	require.NoError(t, err)
	assert.Equal(t, "42", got)

	_, err = validate("12a", nil)
	assert.Equal(t, []string{"Only digits are allowed."}, messages(t, err))
}

func TestRegexp(t *testing.T) {
	_, err := Regexp("(", "")
	require.Error(t, err)

	validate, err := Regexp(`^[A-Z]{2}$`, "Use a two letter state code.")
	require.NoError(t, err)

	got, err := validate(" SP ", nil)
	require.NoError(t, err)
	assert.Equal(t, "SP", got)

	_, err = validate("Sao Paulo", nil)
	assert.Equal(t, []string{"Use a two letter state code."}, messages(t, err))
}

func TestOneOf(t *testing.T) {
	validate := OneOf("Active", "Inactive")

	got, err := validate("active", nil)
	require.NoError(t, err)
	assert.Equal(t, "Active", got)

	_, err = validate("gone", nil)
	assert.Equal(t, []string{`Value "gone" is not one of: Active, Inactive.`}, messages(t, err))
}

func TestMaxLength(t *testing.T) {
	validate := MaxLength(3)

	_, err := validate("ação", nil)
	assert.Error(t, err)

	got, err := validate("açã", nil)
	require.NoError(t, err)
	assert.Equal(t, "açã", got)
}

func TestTag(t *testing.T) {
	validate := Tag("email")

	got, err := validate("ana@example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", got)

	_, err = validate("not-an-email", nil)
	assert.Equal(t, []string{`"not-an-email" is not a valid e-mail address.`}, messages(t, err))

	assert.NoError(t, CheckTag("len=8,numeric"))
	assert.Error(t, CheckTag("no_such_tag"))
}

func TestDate(t *testing.T) {
	validate := Date()

	got, err := validate("2024-03-15", nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), got)

	got, err = validate("3/15/2024", nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), got)

	ts := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	got, err = validate(ts, nil)
	require.NoError(t, err)
	assert.Equal(t, ts, got)

	_, err = validate("someday", nil)
	assert.Equal(t, []string{`Invalid date "someday".`}, messages(t, err))

	br := Date("02/01/2006")
	got, err = br("15/03/2024", nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDate_TwoDigitYearPivot(t *testing.T) {
	got, ok := ParseDate("1/2/99")
	require.True(t, ok)
	assert.Equal(t, 1999, got.Year())

	got, ok = ParseDate("1/2/24")
	require.True(t, ok)
	assert.Equal(t, 2024, got.Year())
}

func TestDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1,234.50", "1234.50"},
		{"$99", "99"},
		{"(12.5)", "-12.5"},
		{"R$ 10.00", "10.00"},
	}

	validate := Decimal()
	for _, tt := range tests {
		got, err := validate(tt.in, nil)
		require.NoError(t, err, tt.in)

		var want pgtype.Numeric
		require.NoError(t, want.Scan(tt.want))
		n := got.(pgtype.Numeric)
		assert.Equal(t, 0, n.Int.Cmp(want.Int), tt.in)
		assert.Equal(t, want.Exp, n.Exp, tt.in)
	}

	_, err := validate("12abc", nil)
	assert.Equal(t, []string{`Invalid number "12abc".`}, messages(t, err))
}

func TestInteger(t *testing.T) {
	validate := Integer()

	for _, in := range []any{"1,200", int64(1200), float64(1200)} {
		got, err := validate(in, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1200), got)
	}

	_, err := validate(1.5, nil)
	assert.Error(t, err)
	_, err = validate("ten", nil)
	assert.Error(t, err)
}

func TestBool(t *testing.T) {
	validate := Bool()

	for in, want := range map[any]bool{"Yes": true, "n": false, "sim": true, true: true, int64(0): false} {
		got, err := validate(in, nil)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := validate("maybe", nil)
	assert.Equal(t, []string{`Invalid boolean "maybe".`}, messages(t, err))
}

func TestTrimAndChain(t *testing.T) {
	validate := Chain(Trim(), Digits())

	got, err := validate(`="00042"`, reader.Row{})
	require.NoError(t, err)
	assert.Equal(t, "00042", got)

	_, err = validate(" 4x ", reader.Row{})
	assert.Error(t, err)
}

func TestRulesPassEmptyValues(t *testing.T) {
	for name, validate := range map[string]core.Validator{
		"digits":  Digits(),
		"oneof":   OneOf("a"),
		"date":    Date(),
		"decimal": Decimal(),
		"integer": Integer(),
		"bool":    Bool(),
		"cpf":     CPF(),
		"tag":     Tag("email"),
	} {
		got, err := validate("  ", nil)
		assert.NoError(t, err, name)
		assert.Equal(t, "  ", got, name)
	}
}
