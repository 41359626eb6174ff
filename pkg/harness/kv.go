// Package harness runs key/value host tests against a DUT console: the
// DUT embeds {{key;value}} tokens in its output, the host dispatches
// them to registered callbacks and answers with tokens of its own. The
// console is any io.ReadWriter, so live runs use a serial port and tests
// use an in-memory script.
package harness

import (
	"fmt"
	"regexp"
)

// Protocol keys used by the handshake and test lifecycle. Keys starting
// with __ are reserved for the protocol itself; everything else is
// dispatched to test callbacks.
const (
	KeySync           = "__sync"
	KeyVersion        = "__version"
	KeyTimeout        = "__timeout"
	KeyHostTestName   = "__host_test_name"
	KeyTestcaseName   = "__testcase_name"
	KeyTestcaseCount  = "__testcase_count"
	KeyTestcaseStart  = "__testcase_start"
	KeyTestcaseFinish = "__testcase_finish"
	KeyEnd            = "end"
	KeyExit           = "__exit"
)

// kvPattern matches one {{key;value}} token. Tokens may be embedded
// anywhere in a console line, surrounded by ordinary output.
var kvPattern = regexp.MustCompile(`\{\{([^;}]+);([^}]*)\}\}`)

// EncodeKV renders one token.
func EncodeKV(key, value string) string {
	return fmt.Sprintf("{{%s;%s}}", key, value)
}

// KV is one parsed token.
type KV struct {
	Key   string
	Value string
}

// ParseKV extracts the first token from a console line.
func ParseKV(line string) (KV, bool) {
	m := kvPattern.FindStringSubmatch(line)
	if m == nil {
		return KV{}, false
	}
	return KV{Key: m[1], Value: m[2]}, true
}

// ParseKVs extracts every token from a console line, in order.
func ParseKVs(line string) []KV {
	var kvs []KV
	for _, m := range kvPattern.FindAllStringSubmatch(line, -1) {
		kvs = append(kvs, KV{Key: m[1], Value: m[2]})
	}
	return kvs
}
