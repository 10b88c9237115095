// Command corebench is a small demonstration and load-testing CLI for
// corepit's synchronization primitives: it exercises the intrusive stacks,
// the WaitCell notification primitive, the monotonic clock, and a simulated
// PIT driver, the way a kernel's own bring-up harness would before trusting
// these primitives on real hardware.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dijkstracula/corepit/corelog"
	"github.com/dijkstracula/corepit/coremetrics"
	"github.com/dijkstracula/corepit/hostclock"
	"github.com/dijkstracula/corepit/intrusive"
	"github.com/dijkstracula/corepit/pit"
	"github.com/dijkstracula/corepit/wait"
)

var verbose bool

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "corebench",
		Short: "Exercise corepit's synchronization primitives",
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose {
			l, _ := zap.NewDevelopment()
			corelog.SetLogger(l)
		}
	}

	root.AddCommand(newStackCmd())
	root.AddCommand(newWaitCmd())
	root.AddCommand(newClockCmd())
	root.AddCommand(newPitCmd())
	return root
}

type benchNode struct {
	links intrusive.Links[benchNode]
	id    int
}

func (n *benchNode) Links() *intrusive.Links[benchNode] { return &n.links }

func newStackCmd() *cobra.Command {
	var producers, perProducer int
	cmd := &cobra.Command{
		Use:   "stack",
		Short: "Push from several goroutines and drain a TransferStack",
		RunE: func(cmd *cobra.Command, args []string) error {
			var ts intrusive.TransferStack[benchNode, *benchNode]

			done := make(chan struct{}, producers)
			for p := 0; p < producers; p++ {
				go func(p int) {
					for i := 0; i < perProducer; i++ {
						ts.Push(&benchNode{id: p*perProducer + i})
					}
					done <- struct{}{}
				}(p)
			}
			for p := 0; p < producers; p++ {
				<-done
			}

			total := 0
			batch := ts.TakeAll()
			batch.Each(func(n *benchNode) { total++ })
			coremetrics.ObserveStackTakeAll("corebench", total)

			want := producers * perProducer
			corelog.Named("corebench").Info("drained stack",
				zap.Int("want", want), zap.Int("got", total))
			if total != want {
				return fmt.Errorf("corebench: expected %d elements, drained %d", want, total)
			}
			fmt.Printf("drained %d elements from %d producers\n", total, producers)
			return nil
		},
	}
	cmd.Flags().IntVar(&producers, "producers", 8, "number of concurrent pushing goroutines")
	cmd.Flags().IntVar(&perProducer, "per-producer", 1000, "elements pushed by each goroutine")
	return cmd
}

func newWaitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Register on a WaitCell and time how long a notifier takes to wake it",
		RunE: func(cmd *cobra.Command, args []string) error {
			var cell wait.Cell
			w := cell.Wait()
			cont := wait.NewChanContinuation()

			ready, err := w.Poll(cont)
			if err != nil {
				return err
			}
			if ready {
				return fmt.Errorf("corebench: wait resolved before any notification")
			}

			start := time.Now()
			go func() {
				time.Sleep(5 * time.Millisecond)
				cell.Wake()
			}()

			<-cont.Notifications()
			elapsed := time.Since(start)

			ready, err = w.Poll(cont)
			if err != nil {
				return err
			}
			if !ready {
				return fmt.Errorf("corebench: wait did not resolve after a wake notification")
			}
			fmt.Printf("woken after %s\n", elapsed)
			return nil
		},
	}
	return cmd
}

func newClockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clock",
		Short: "Print the host monotonic clock's current instant twice, a millisecond apart",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := hostclock.Monotonic()
			first := c.Now()
			time.Sleep(time.Millisecond)
			second := c.Now()

			var errs *multierror.Error
			if !second.After(first) {
				errs = multierror.Append(errs, fmt.Errorf("corebench: clock did not advance"))
			}
			if errs.ErrorOrNil() != nil {
				return errs
			}

			fmt.Printf("%s: %s -> %s (delta %s)\n", c.Name(), first, second, second.Since(first))
			return nil
		},
	}
	return cmd
}

func newPitCmd() *cobra.Command {
	var sleepMs, periodMs int64
	cmd := &cobra.Command{
		Use:   "pit",
		Short: "Drive a simulated PIT through a periodic timer and a blocking sleep",
		RunE: func(cmd *cobra.Command, args []string) error {
			port := pit.NewSimPort()

			var driver *pit.Driver
			driver = pit.New(port, pit.WithWaitForInterrupt(func() {
				time.Sleep(time.Duration(sleepMs) * time.Millisecond)
				driver.HandleInterrupt()
			}))

			if err := driver.StartPeriodicTimer(time.Duration(periodMs) * time.Millisecond); err != nil {
				return err
			}

			start := time.Now()
			if err := driver.SleepBlocking(time.Duration(sleepMs) * time.Millisecond); err != nil {
				return err
			}
			elapsed := time.Since(start)

			fmt.Printf("slept for %s; PIT programmed %d command bytes\n", elapsed, len(port.Commands()))
			return nil
		},
	}
	cmd.Flags().Int64Var(&sleepMs, "sleep-ms", 2, "duration of the blocking sleep, in milliseconds")
	cmd.Flags().Int64Var(&periodMs, "period-ms", 4, "periodic timer interval, in milliseconds")
	return cmd
}
