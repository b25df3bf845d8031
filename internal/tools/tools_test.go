package tools

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckPythonDenylist(t *testing.T) {
	unsafe := []string{
		"import os\nprint(os.environ)",
		"from subprocess import run",
		"open('/etc/passwd').read()",
		"__import__('socket')",
		"eval('1+1')",
		"exec('x = 1')",
	}
	for _, code := range unsafe {
		err := CheckPython(code, true)
		require.Error(t, err, "code must be rejected: %q", code)
		require.Equal(t, ErrUnsafeCode, KindOf(err))
	}

	require.NoError(t, CheckPython("print(1 + 1)", true))
	require.NoError(t, CheckPython("import os", false), "safe mode off skips the denylist")
}

func TestCheckJSDenylist(t *testing.T) {
	unsafe := []string{
		`require("fs")`,
		`process.env.SECRET`,
		`const cp = require("child_process")`,
		`eval("1+1")`,
	}
	for _, code := range unsafe {
		err := CheckJS(code, true)
		require.Error(t, err, "code must be rejected: %q", code)
		require.Equal(t, ErrUnsafeCode, KindOf(err))
	}
	require.NoError(t, CheckJS("console.log(1 + 1)", true))
}

func TestCheckReadOnly(t *testing.T) {
	require.NoError(t, checkReadOnly("SELECT * FROM users"))
	require.NoError(t, checkReadOnly("select 1;"))

	rejected := []string{
		"SELECT 1; DROP TABLE users",
		"DROP TABLE users",
		"INSERT INTO t VALUES (1)",
		"update t set a = 1",
		"PRAGMA writable_schema = ON",
	}
	for _, q := range rejected {
		err := checkReadOnly(q)
		require.Error(t, err, "query must be rejected: %q", q)
		require.Equal(t, ErrUnsafeCode, KindOf(err))
	}
}

func TestParseKind(t *testing.T) {
	kind, ok := ParseKind("python")
	require.True(t, ok)
	require.Equal(t, Python, kind)

	kind, ok = ParseKind("url")
	require.True(t, ok)
	require.Equal(t, Fetch, kind, "url aliases fetch")

	_, ok = ParseKind("frobnicate")
	require.False(t, ok)
}

func TestParseCommand(t *testing.T) {
	kind, args, ok := ParseCommand("/python print(40 + 2)")
	require.True(t, ok)
	require.Equal(t, Python, kind)
	require.Equal(t, "print(40 + 2)", args.Code)

	kind, args, ok = ParseCommand("sql: SELECT 1")
	require.True(t, ok)
	require.Equal(t, SQL, kind)
	require.Equal(t, "SELECT 1", args.Query)

	_, _, ok = ParseCommand("what is 2+2")
	require.False(t, ok)

	_, _, ok = ParseCommand("/unknown do things")
	require.False(t, ok)
}

func TestRunSympyRejectsInjection(t *testing.T) {
	d := &Dispatcher{safeMode: true, maxInputLen: 12000, pythonPath: "python3"}
	_, err := d.RunSympy(nil, `x") ; import os ; ("`)
	require.Error(t, err)
	require.Equal(t, ErrUnsafeCode, KindOf(err))
}
