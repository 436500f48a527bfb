package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// DockerPsTool implements docker_ps (spec.md §4.2): a read-only
// convenience wrapper over `docker ps` listing running containers.
type DockerPsTool struct{}

func NewDockerPsTool() *DockerPsTool { return &DockerPsTool{} }

func (t *DockerPsTool) Name() string        { return "docker_ps" }
func (t *DockerPsTool) Description() string { return "List running Docker containers" }
func (t *DockerPsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"all": map[string]interface{}{"type": "boolean", "description": "Include stopped containers"},
		},
	}
}

func (t *DockerPsTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	argv := []string{"ps"}
	if all, _ := args["all"].(bool); all {
		argv = append(argv, "--all")
	}
	cmd := exec.CommandContext(ctx, "docker", argv...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := stderr.String()
		if msg == "" {
			msg = err.Error()
		}
		return ErrorResult(fmt.Sprintf("docker ps failed: %s", msg))
	}
	return NewResult(stdout.String())
}
