package processing

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// processingIndex tracks which derivatives are current, keyed by
// "source|target" with a "mtime:size" signature of the source file.
// It lives as a plain line-oriented file at the library root so it can be
// inspected or deleted to force a full re-render.
type processingIndex map[string]string

func loadIndex(path string) (processingIndex, error) {
	index := processingIndex{}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return index, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		parts := strings.Split(sc.Text(), "|")
		if len(parts) == 3 {
			index[parts[0]+"|"+parts[1]] = parts[2]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read index %s: %w", path, err)
	}
	return index, nil
}

func (idx processingIndex) save(path string) error {
	keys := make([]string, 0, len(idx))
	for k := range idx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('|')
		b.WriteString(idx[k])
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write index %s: %w", path, err)
	}
	return nil
}

func (idx processingIndex) set(source, target, signature string) {
	idx[source+"|"+target] = signature
}

// fileSignature is mtime:size of a file, "0:0" when the file is unreadable.
func fileSignature(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "0:0"
	}
	return fmt.Sprintf("%d:%d", info.ModTime().Unix(), info.Size())
}

// needsUpdate reports whether a derivative must be re-rendered: the target is
// missing, the index entry is stale, or the source is newer than the target.
func needsUpdate(source, target string, idx processingIndex) bool {
	targetInfo, err := os.Stat(target)
	if err != nil {
		return true
	}
	if sig, ok := idx[source+"|"+target]; ok && sig == fileSignature(source) {
		return false
	}
	sourceInfo, err := os.Stat(source)
	if err != nil {
		return false
	}
	return sourceInfo.ModTime().After(targetInfo.ModTime())
}
