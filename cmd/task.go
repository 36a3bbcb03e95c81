package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// taskCmd represents the task command.
var taskCmd = &cobra.Command{
	Use:     "task",
	Aliases: []string{"tasks", "t"},
	Short:   "Manage your task list",
	Long: `Add, list, complete and remove tasks. Without a subcommand the task
list is shown. Tasks are referred to by the short id shown in the list;
any unique prefix of at least four characters works.

Examples:
  remindbot task add Buy milk
  remindbot task
  remindbot task complete 3f2a9c1b
  remindbot task remove 3f2a`,
	Args: cobra.NoArgs,
	RunE: runTaskList,
}

// taskAddCmd adds a task.
var taskAddCmd = &cobra.Command{
	Use:   "add DESCRIPTION...",
	Short: "Add a task",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTaskAdd,
}

// taskListCmd lists tasks.
var taskListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List your tasks",
	Args:    cobra.NoArgs,
	RunE:    runTaskList,
}

// taskCompleteCmd marks a task completed.
var taskCompleteCmd = &cobra.Command{
	Use:     "complete ID",
	Aliases: []string{"done"},
	Short:   "Mark a task as completed",
	Args:    cobra.ExactArgs(1),
	RunE:    runTaskComplete,
}

// taskRemoveCmd removes a task.
var taskRemoveCmd = &cobra.Command{
	Use:     "remove ID",
	Aliases: []string{"rm", "delete"},
	Short:   "Remove a task",
	Args:    cobra.ExactArgs(1),
	RunE:    runTaskRemove,
}

func init() {
	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskCompleteCmd)
	taskCmd.AddCommand(taskRemoveCmd)
	rootCmd.AddCommand(taskCmd)
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	task, err := ctx.Service.AddTask(ctx.Ctx(cmd.Context()), ctx.Owner(), strings.Join(args, " "))
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintTask(task)
	}
	ctx.CLIFormatter().PrintTaskAdded(task)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	tasks, err := ctx.Service.ListTasks(ctx.Ctx(cmd.Context()), ctx.Owner())
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintTasks(tasks)
	}
	ctx.CLIFormatter().PrintTasks(tasks)
	return nil
}

func runTaskComplete(cmd *cobra.Command, args []string) error {
	if err := ctx.Service.CompleteTask(ctx.Ctx(cmd.Context()), ctx.Owner(), args[0]); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintAction("completed", args[0])
	}
	ctx.CLIFormatter().Success(fmt.Sprintf("Task %s marked as completed", args[0]))
	return nil
}

func runTaskRemove(cmd *cobra.Command, args []string) error {
	if err := ctx.Service.RemoveTask(ctx.Ctx(cmd.Context()), ctx.Owner(), args[0]); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintAction("removed", args[0])
	}
	ctx.CLIFormatter().Success(fmt.Sprintf("Task %s removed", args[0]))
	return nil
}
