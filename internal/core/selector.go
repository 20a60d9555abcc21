package core

import "strings"

// The listing stages hand out compound identifiers: task ARNs like
// "arn:aws:ecs:eu-west-1:123:task/cluster/abcdef" and container entries like
// "arn:...:container/xyz - web". Resolution must split them with the same
// conventions or it silently matches nothing.

// TaskID extracts the trailing path segment of a task identifier. A bare ID
// passes through unchanged.
func TaskID(task string) string {
	if idx := strings.LastIndex(task, "/"); idx >= 0 {
		return task[idx+1:]
	}
	return task
}

// ContainerARN extracts the ARN part of a compound "arn - name" container
// entry. A bare ARN passes through unchanged.
func ContainerARN(container string) string {
	if idx := strings.Index(container, " "); idx >= 0 {
		return container[:idx]
	}
	return container
}

// DisplayName returns the trailing path segment of an ARN-like identifier,
// the way the stepper displays menu entries.
func DisplayName(id string) string {
	if idx := strings.LastIndex(id, "/"); idx >= 0 {
		return id[idx+1:]
	}
	return id
}
