package cmd

import (
	"strings"
	"testing"
)

func TestAgentHelp(t *testing.T) {
	t.Parallel()
	help := agentHelp("/opt/bin/erldoc")

	for _, want := range []string{
		"## /opt/bin/erldoc build [dir]",
		"## /opt/bin/erldoc resolve <role> <target>",
		"/opt/bin/erldoc resolve func lists:map/2",
		"## /opt/bin/erldoc search <query>",
	} {
		if !strings.Contains(help, want) {
			t.Errorf("help missing %q", want)
		}
	}
	for _, hidden := range []string{"## /opt/bin/erldoc daemon", "## /opt/bin/erldoc mcp"} {
		if strings.Contains(help, hidden) {
			t.Errorf("help lists %q", hidden)
		}
	}
}
