// Package pid lets the operator inspect and kill processes on the machine
// the bot runs on, and lets cron-driven CLI invocations wait for a set of
// PIDs to finish.
package pid

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/hmontero/librarian/internal/backend"
	"github.com/hmontero/librarian/internal/dispatch"
)

// Help is the usage text aggregated by /help.
const Help = ` > PID module
   /kill_pid pid: kills the given pid
   /is_pid_alive pid|name: checks whether the pid or program is still alive`

// Component checks or kills processes. Every path is identity-gated.
type Component struct {
	inv *dispatch.Invocation
	log *slog.Logger
}

// New builds the handler for one invocation.
func New(inv *dispatch.Invocation) (dispatch.Handler, error) {
	return &Component{inv: inv, log: slog.Default().With("component", "pid")}, nil
}

// isAlive checks whether a PID (or a substring to search command lines
// for) matches any live process, and describes the matches.
func isAlive(data string) string {
	if pid, err := strconv.ParseInt(data, 10, 32); err == nil {
		exists, err := process.PidExists(int32(pid))
		if err == nil && exists {
			return fmt.Sprintf("%s is alive", data)
		}
		return fmt.Sprintf("%s not found among active processes", data)
	}

	procs, err := process.Processes()
	if err != nil {
		return fmt.Sprintf("could not list processes: %v", err)
	}
	var matches []string
	for _, p := range procs {
		cmdline, err := p.Cmdline()
		if err != nil || cmdline == "" {
			continue
		}
		if strings.Contains(cmdline, data) {
			matches = append(matches, fmt.Sprintf("PID: %d, %s", p.Pid, cmdline))
		}
	}
	if len(matches) == 0 {
		return fmt.Sprintf("%s not found among active processes", data)
	}
	return fmt.Sprintf("%s is alive\nI found the following matching processes:\n > %s",
		data, strings.Join(matches, "\n > "))
}

// kill terminates the given PID.
func kill(pid int32) string {
	exists, err := process.PidExists(pid)
	if err != nil || !exists {
		return fmt.Sprintf("No process with pid %d", pid)
	}
	proc, err := process.NewProcess(pid)
	if err != nil {
		return fmt.Sprintf("No process with pid %d", pid)
	}
	if err := proc.Kill(); err != nil {
		return fmt.Sprintf("Could not kill %d: %v", pid, err)
	}
	return fmt.Sprintf("%d killed", pid)
}

// TelegramMessage handles /is_pid_alive and /kill_pid.
func (c *Component) TelegramMessage(msg *backend.Message) error {
	if !c.inv.CheckIdentity(msg) {
		return c.inv.NotAllowed(msg)
	}

	arg := strings.TrimSpace(msg.Text)
	var reply string
	switch msg.Command {
	case "kill_pid":
		pid, err := strconv.ParseInt(arg, 10, 32)
		if err != nil {
			reply = fmt.Sprintf("%s is not a PID?", arg)
		} else {
			reply = kill(int32(pid))
		}
	case "is_pid_alive":
		reply = isAlive(arg)
	default:
		reply = fmt.Sprintf("Command %s not understood?", msg.Command)
	}
	return c.inv.Reply(reply)
}

// CommandLine waits until every PID given with --pid has finished.
func (c *Component) CommandLine(args *dispatch.CmdArgs) error {
	c.log.Info("waiting for the given PIDs", "pids", args.PIDs)
	for _, pid := range args.PIDs {
		for {
			exists, err := process.PidExists(pid)
			if err != nil || !exists {
				break
			}
			time.Sleep(2 * time.Second)
		}
	}
	return nil
}
