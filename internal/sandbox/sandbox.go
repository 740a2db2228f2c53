// Package sandbox runs model invocations as agent commands inside Docker
// containers. The prompt is mounted read-only at /prompt.md and the agent's
// stdout is the invocation output, which lets agentic backends (tool-using
// coders and planners) serve as a drop-in model client.
package sandbox

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"

	"github.com/planjudge/planjudge/internal/llm"
)

// Client is an llm.Client backed by a containerised agent.
type Client struct {
	Image   string
	Command []string
	Env     map[string]string
	Timeout time.Duration
}

func (c *Client) Invoke(ctx context.Context, prompt string, opts llm.Options) (*llm.Response, error) {
	promptDir, err := os.MkdirTemp("", "planjudge-prompt-")
	if err != nil {
		return nil, fmt.Errorf("creating prompt dir: %w", err)
	}
	defer os.RemoveAll(promptDir)
	promptPath := filepath.Join(promptDir, "prompt.md")
	if err := os.WriteFile(promptPath, []byte(prompt), 0o644); err != nil {
		return nil, fmt.Errorf("writing prompt: %w", err)
	}

	res, err := runContainer(ctx, &runOpts{
		Image:      c.Image,
		Command:    c.Command,
		PromptPath: promptPath,
		Model:      opts.Model,
		Env:        c.Env,
		Timeout:    c.Timeout,
	})
	if err != nil {
		return nil, err
	}
	if res.TimedOut {
		return nil, &llm.InvocationError{Msg: fmt.Sprintf("agent timed out after %s", c.Timeout)}
	}
	if res.ExitCode != 0 {
		return nil, &llm.InvocationError{
			Msg: fmt.Sprintf("agent exited %d: %s", res.ExitCode, tail(res.Output, 500)),
		}
	}
	return &llm.Response{Text: res.Output}, nil
}

type runOpts struct {
	Image      string
	Command    []string
	PromptPath string
	Model      string
	Env        map[string]string
	Timeout    time.Duration
}

type runResult struct {
	ExitCode int
	TimedOut bool
	Output   string
}

func runContainer(ctx context.Context, opts *runOpts) (*runResult, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	defer cli.Close()

	env := []string{
		"PROMPT_FILE=/prompt.md",
		"MODEL=" + opts.Model,
	}
	for k, v := range opts.Env {
		env = append(env, k+"="+v)
	}

	initTrue := true
	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{
			{Type: mount.TypeBind, Source: opts.PromptPath, Target: "/prompt.md", ReadOnly: true},
		},
		Init: &initTrue,
	}
	// Allow the agent to reach a gateway on the host.
	hostCfg.ExtraHosts = []string{"host.docker.internal:host-gateway"}

	containerCfg := &container.Config{
		Image:  opts.Image,
		Cmd:    opts.Command,
		Env:    env,
		Labels: map[string]string{"planjudge": "true"},
	}

	createResp, err := cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     containerCfg,
		HostConfig: hostCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("creating container: %w", err)
	}
	containerID := createResp.ID
	defer func() {
		cli.ContainerRemove(context.Background(), containerID, client.ContainerRemoveOptions{Force: true})
	}()

	if _, err := cli.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		return nil, fmt.Errorf("starting container: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	waitResult := cli.ContainerWait(timeoutCtx, containerID, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})
	for {
		select {
		case err := <-waitResult.Error:
			if err != nil {
				cli.ContainerKill(context.Background(), containerID, client.ContainerKillOptions{Signal: "SIGKILL"})
				return &runResult{ExitCode: 124, TimedOut: true, Output: readLogs(cli, containerID)}, nil
			}
			// nil error means no error on this channel; wait for result
		case status := <-waitResult.Result:
			return &runResult{ExitCode: int(status.StatusCode), Output: readLogs(cli, containerID)}, nil
		}
	}
}

func readLogs(cli *client.Client, containerID string) string {
	logReader, err := cli.ContainerLogs(context.Background(), containerID, client.ContainerLogsOptions{ShowStdout: true})
	if err != nil {
		return ""
	}
	defer logReader.Close()
	data, _ := io.ReadAll(logReader)
	return string(data)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
