package remote

import (
	"fmt"
	"strings"
)

const connectionTestCommand = "echo 'dux connection test' && uname -a"

// quote quotes path as a single argument of a POSIX shell. A leading "~/" is left
// unquoted, so that the remote shell still expands it.
func quote(path string) string {
	if path == "~" {
		return path
	}

	prefix := ""
	if strings.HasPrefix(path, "~/") {
		prefix, path = "~/", path[2:]
	}

	return prefix + "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}

func lookupCommand(tool string) string {
	return fmt.Sprintf("command -v %v 2>/dev/null || true", tool)
}

func documentCommand(tool, path string) string {
	return fmt.Sprintf("%v scan --json %v", tool, quote(path))
}

// listingCommands returns the commands that list entries as "path|type|size" lines,
// in the order they should be attempted: GNU find first, then a portable stat loop.
func listingCommands(path string, maxDepth int) []string {
	quoted := quote(path)

	return []string{
		fmt.Sprintf(`find %v -maxdepth %d -printf '%%p|%%y|%%s\n' 2>/dev/null`, quoted, maxDepth),
		fmt.Sprintf(`find %v -maxdepth %d -exec sh -c 'for f; do `+
			`if [ -d "$f" ] && [ ! -L "$f" ]; then t=d; else t=f; fi; `+
			`s=$(stat -c%%s "$f" 2>/dev/null || stat -f%%z "$f" 2>/dev/null || echo 0); `+
			`printf "%%s|%%s|%%s\n" "$f" "$t" "$s"; done' _ {} + 2>/dev/null`, quoted, maxDepth),
	}
}
