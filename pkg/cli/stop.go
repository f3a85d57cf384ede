package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	stopPIDFile string
	stopForce   bool
	stopTimeout int
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running trapd server",
	Example: `  # Stop gracefully
  trapd stop

  # Force stop
  trapd stop --force

  # Stop with custom PID file
  trapd stop --pid-file /tmp/trapd.pid

  # Stop with longer timeout
  trapd stop --timeout 30`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStop(stopPIDFile, stopForce, stopTimeout)
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
	stopCmd.Flags().StringVar(&stopPIDFile, "pid-file", "", "Path to PID file (default: ~/.trapd/trapd.pid)")
	stopCmd.Flags().BoolVarP(&stopForce, "force", "f", false, "Send "+signalKillName()+" instead of "+signalTermName())
	stopCmd.Flags().IntVar(&stopTimeout, "timeout", 10, "Timeout in seconds to wait for graceful shutdown")
}

// runStop signals the process recorded in the PID file and waits for it
// to exit.
func runStop(pidFile string, force bool, timeout int) error {
	pidPath := pidFile
	if pidPath == "" {
		pidPath = DefaultPIDPath()
	}

	info, err := ReadPIDFile(pidPath)
	if err != nil {
		return fmt.Errorf("trapd is not running (no PID file found at %s)", pidPath)
	}

	if !info.IsRunning() {
		// Stale PID file - clean it up
		_ = RemovePIDFile(pidPath)
		return errors.New("trapd is not running (stale PID file removed)")
	}

	process, err := os.FindProcess(info.PID)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", info.PID, err)
	}

	sig := signalTerm
	sigName := signalTermName()
	if force {
		sig = signalKill
		sigName = signalKillName()
	}

	fmt.Printf("Stopping trapd (PID %d) with %s... ", info.PID, sigName)

	if err := process.Signal(sig); err != nil {
		fmt.Println("failed")
		return fmt.Errorf("failed to send signal: %w", err)
	}

	// For a force kill there is no graceful exit to wait for
	if force {
		fmt.Println("done")
		time.Sleep(100 * time.Millisecond)
		_ = RemovePIDFile(pidPath)
		return nil
	}

	deadline := time.Now().Add(time.Duration(timeout) * time.Second)
	for time.Now().Before(deadline) {
		if !checkProcessRunning(info.PID) {
			fmt.Println("done")
			_ = RemovePIDFile(pidPath)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	fmt.Println("timeout")
	fmt.Printf("\nProcess did not stop within %d seconds.\n", timeout)
	fmt.Println("Try: trapd stop --force")
	return errors.New("timeout waiting for process to stop")
}
