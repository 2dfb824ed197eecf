package output_test

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/timelock/internal/output"
)

type balanceView struct {
	Holder string `json:"holder"`
	Ether  string `json:"ether"`
}

func TestFormatter_Result(t *testing.T) {
	t.Parallel()
	v := balanceView{Holder: "wallet", Ether: "1.5"}

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		f := output.NewFormatter(output.FormatJSON, &buf)
		require.NoError(t, f.Result("wallet: 1.5 ETH", v))

		var got balanceView
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, v, got)
	})

	t.Run("text", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		f := output.NewFormatter(output.FormatText, &buf)
		require.NoError(t, f.Result("wallet: 1.5 ETH", v))
		assert.Equal(t, "wallet: 1.5 ETH\n", buf.String())
	})
}

func TestFormatter_Print(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	f := output.NewFormatter(output.FormatText, &buf)

	require.NoError(t, f.Print("hello world"))
	require.NoError(t, f.Print(42))
	require.NoError(t, f.Printf("%s=%d\n", "nonce", 6))
	assert.Equal(t, "hello world\n42\nnonce=6\n", buf.String())
	assert.False(t, f.IsJSON())
	assert.Equal(t, output.FormatText, f.Format())
	assert.Equal(t, &buf, f.Writer())
}

func TestNewFormatter_AutoResolves(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	assert.Equal(t, output.FormatJSON, output.NewFormatter(output.FormatAuto, &buf).Format())
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input string
		want  output.Format
	}{
		{"json", output.FormatJSON},
		{" JSON ", output.FormatJSON},
		{"text", output.FormatText},
		{"auto", output.FormatAuto},
		{"", output.FormatAuto},
		{"yaml", output.FormatAuto},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, output.ParseFormat(tt.input))
		})
	}
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	assert.Equal(t, output.FormatText, output.DetectFormat(&buf, output.FormatText))
	assert.Equal(t, output.FormatJSON, output.DetectFormat(&buf, output.FormatAuto))
	assert.Equal(t, output.FormatJSON, output.DetectFormat(&buf, ""))
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	assert.False(t, output.IsTerminal(&buf))
	assert.False(t, output.IsTerminal(nil))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.False(t, output.IsTerminal(f))
}

func TestTable(t *testing.T) {
	t.Parallel()

	t.Run("headers and rows", func(t *testing.T) {
		t.Parallel()
		table := output.NewTable("HOLDER", "ETH")
		table.AddRow("wallet", "99.5").AddRow("contract", "1")
		assert.Equal(t, 2, table.Len())
		assert.Equal(t,
			"HOLDER    ETH\n"+
				"------    ---\n"+
				"wallet    99.5\n"+
				"contract  1\n",
			table.String())
	})

	t.Run("rows only", func(t *testing.T) {
		t.Parallel()
		table := output.NewTable()
		table.AddRow("network", "localhost")
		table.AddRow("chain_id", "31337")
		assert.Equal(t, "network   localhost\nchain_id  31337\n", table.String())
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, output.NewTable().String())
	})
}
