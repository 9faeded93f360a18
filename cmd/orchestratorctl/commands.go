package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"
)

// These name the orchestrator's public bus surface. They mirror the
// wire contract published by internal/orchestrator, not an internal
// implementation detail, the same way a systemd client hardcodes
// org.freedesktop.systemd1's object paths.
const (
	orchestratorIface = "org.fleetkit.Orchestrator1"
	orchestratorPath  = dbus.ObjectPath("/org/fleetkit/Orchestrator")
	jobIface          = "org.fleetkit.Orchestrator1.Job"
)

func connect() (*dbus.Conn, dbus.BusObject, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to session bus: %w", err)
	}
	return conn, conn.Object(busName, orchestratorPath), nil
}

var isolateCmd = &cobra.Command{
	Use:   "isolate <target>",
	Short: "Queue an IsolateAll job against every registered node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, obj, err := connect()
		if err != nil {
			return err
		}
		defer conn.Close()

		var jobPath dbus.ObjectPath
		if err := obj.Call(orchestratorIface+".IsolateAll", 0, args[0]).Store(&jobPath); err != nil {
			return fmt.Errorf("IsolateAll: %w", err)
		}
		fmt.Println(color.GreenString("queued"), string(jobPath))
		return nil
	},
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List queued and running jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, obj, err := connect()
		if err != nil {
			return err
		}
		defer conn.Close()

		var paths []dbus.ObjectPath
		if err := obj.Call(orchestratorIface+".ListJobs", 0).Store(&paths); err != nil {
			return fmt.Errorf("ListJobs: %w", err)
		}
		if len(paths) == 0 {
			fmt.Println(color.YellowString("no jobs queued"))
			return nil
		}
		for _, p := range paths {
			printJob(conn, p)
		}
		return nil
	},
}

func printJob(conn *dbus.Conn, path dbus.ObjectPath) {
	obj := conn.Object(busName, path)
	jobType, _ := obj.GetProperty(jobIface + ".JobType")
	state, _ := obj.GetProperty(jobIface + ".State")
	fmt.Printf("%s  %-12v %v\n", path, jobType.Value(), color.CyanString("%v", state.Value()))
}

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List registered nodes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, obj, err := connect()
		if err != nil {
			return err
		}
		defer conn.Close()

		var names []string
		if err := obj.Call(orchestratorIface+".ListNodes", 0).Store(&names); err != nil {
			return fmt.Errorf("ListNodes: %w", err)
		}
		if len(names) == 0 {
			fmt.Println(color.YellowString("no nodes registered"))
			return nil
		}
		for _, n := range names {
			fmt.Println(color.GreenString(n))
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print JobNew and JobRemoved signals as they arrive",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, _, err := connect()
		if err != nil {
			return err
		}
		defer conn.Close()

		matchRule := fmt.Sprintf("type='signal',interface='%s',path='%s'", orchestratorIface, orchestratorPath)
		if err := conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchRule).Err; err != nil {
			return fmt.Errorf("subscribing to signals: %w", err)
		}

		signals := make(chan *dbus.Signal, 16)
		conn.Signal(signals)
		fmt.Println(color.CyanString("watching for job events (ctrl-c to stop)"))
		for sig := range signals {
			switch sig.Name {
			case orchestratorIface + ".JobNew":
				fmt.Println(append([]interface{}{color.GreenString("job new")}, sig.Body...)...)
			case orchestratorIface + ".JobRemoved":
				fmt.Println(append([]interface{}{color.YellowString("job removed")}, sig.Body...)...)
			}
		}
		return nil
	},
}
