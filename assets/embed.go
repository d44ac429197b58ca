package assets

import (
	"bufio"
	"embed"
	"strings"
	"sync"
)

//go:embed prompts/system.txt prompts/instructions.txt
var FS embed.FS

var (
	loadOnce     sync.Once
	system       string
	instructions string
)

// readText joins the non-comment lines of an embedded file with spaces.
func readText(name string) string {
	f, err := FS.Open(name)
	if err != nil {
		panic("assets: " + err.Error())
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return strings.Join(out, " ")
}

func load() {
	system = readText("prompts/system.txt")
	instructions = readText("prompts/instructions.txt")
}

// SystemPrompt is the role text sent to every scoring backend.
func SystemPrompt() string {
	loadOnce.Do(load)
	return system
}

// Instructions is the task description embedded in the user message.
func Instructions() string {
	loadOnce.Do(load)
	return instructions
}
