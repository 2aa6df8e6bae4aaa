package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/derktes/ir-signal-codec/aeha"
	"github.com/derktes/ir-signal-codec/pulse"
	"github.com/derktes/ir-signal-codec/store"
)

func TestEncodeWaveform(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"encode", "-power", "off", "-mode", "cool", "-temp", "28", "-strength", "quiet", "-direction", "1"}, &stdout, &stderr)
	assert.NoError(t, err, stderr.String())

	out := strings.TrimSpace(stdout.String())
	assert.True(t, strings.HasPrefix(out, "[3400, 1700, 425, 425, 425, 1275, "), out)
	assert.True(t, strings.HasSuffix(out, ", 425, 8500]"), out)
	assert.Equal(t, 440, strings.Count(out, ",")+1)
}

func TestEncodeJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"encode", "-power", "off", "-mode", "cool", "-temp", "28", "-strength", "quiet", "-direction", "1", "-format", "AEHA", "-json"}, &stdout, &stderr)
	assert.NoError(t, err, stderr.String())

	var out encodeOutput
	assert.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Equal(t, aeha.FormatAEHA, out.Format)
	assert.Equal(t, "0220e00400303880310000066020008000062b", out.Hex.String())
	assert.Equal(t, 308, len(out.Waveform))
	assert.Equal(t, []int{425, 12750}, out.Waveform[306:])
}

func TestEncodeErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"encode", "-temp", "31"}, &stdout, &stderr)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "temperature 31 out of range")
	assert.Equal(t, "", stdout.String())

	err = run([]string{"encode", "-format", "NEC"}, &stdout, &stderr)
	assert.Error(t, err)

	err = run([]string{"encode", "-repeat", "0"}, &stdout, &stderr)
	assert.Error(t, err)

	err = run([]string{"encode", "-repeat", "1000000000000"}, &stdout, &stderr)
	assert.EqualError(t, err, "aeha: repeat must be between 1 and 32, got 1000000000000")
	assert.Equal(t, "", stdout.String())
}

func TestDecodeFile(t *testing.T) {
	h, err := aeha.ParseHex("02 20 e0 04 00 30 38 80 31 00 00 06 60 20 00 80 00 06 2b")
	assert.NoError(t, err)
	raw := aeha.Frame(aeha.Bits(aeha.PanasonicHeader), 425)
	raw = append(raw, 425, 10200)
	raw = append(raw, aeha.Frame(aeha.Bits(h), 425)...)
	raw = append(raw, 425)

	data, err := store.Marshal(pulse.Database{
		"cool_28": raw,
		"broken":  {3400, 1700, 425, 10200, 3400, 1700, 1275, 1275},
	})
	assert.NoError(t, err)
	path := filepath.Join(t.TempDir(), "codes.json")
	assert.NoError(t, os.WriteFile(path, data, 0o644))

	var stdout, stderr bytes.Buffer
	assert.NoError(t, run([]string{"decode", "-f", path}, &stdout, &stderr))
	assert.Equal(t,
		"Error decoding broken: unable to decode at frame 1, position 2. Values: 3, 3\n"+
			"cool_28: 02 20 e0 04 00 30 38 80 31 00 00 06 60 20 00 80 00 06 2b\n",
		stdout.String())
}

func TestDecodeMissingFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"decode", "-f", filepath.Join(t.TempDir(), "nope.json")}, &stdout, &stderr)
	assert.Error(t, err)

	err = run([]string{"decode", "-unit", "0"}, &stdout, &stderr)
	assert.Error(t, err)
}

func TestUnknownSubcommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Error(t, run(nil, &stdout, &stderr))
	assert.Error(t, run([]string{"transmit"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage: codec")
}
