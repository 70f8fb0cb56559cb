package app

import "context"

// Task is one independent unit of a fan-out.
type Task struct {
	Name string
	Run  func(ctx context.Context) (any, error)
}

// Outcome is the tagged result of one task: either Value or Err is set.
type Outcome struct {
	Name  string
	Value any
	Err   error
}

// Settle runs every task concurrently and collects each outcome, success or
// failure, without any single failure cancelling its siblings. Per-task
// timeouts are the tasks' own responsibility; Settle only observes ctx for
// the caller's overall deadline.
//
// The returned slice preserves task order.
func Settle(ctx context.Context, tasks ...Task) []Outcome {
	outcomes := make([]Outcome, len(tasks))
	done := make(chan int, len(tasks))

	for i, task := range tasks {
		go func(i int, task Task) {
			value, err := task.Run(ctx)
			outcomes[i] = Outcome{Name: task.Name, Value: value, Err: err}
			done <- i
		}(i, task)
	}

	for range tasks {
		<-done
	}
	return outcomes
}
