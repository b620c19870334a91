package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"recyclectl/internal/model"
	"recyclectl/internal/recycle"
)

// promptConflict asks the operator what to do with an occupied destination.
// Uppercase answers apply the choice to every remaining conflict in the
// batch. Unreadable or unrecognized input skips, the safe default.
func promptConflict(in io.Reader, out io.Writer) recycle.ConflictFunc {
	reader := bufio.NewReader(in)

	return func(entry model.BatchEntry, destination string) recycle.ConflictDecision {
		fmt.Fprintf(out, "destination exists: %s\n", destination)
		fmt.Fprint(out, "[s]kip, [o]verwrite, [r]ename (uppercase = all remaining): ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return recycle.ConflictDecision{Action: recycle.ConflictSkip}
		}

		answer := strings.TrimSpace(line)
		applyToAll := answer != "" && answer == strings.ToUpper(answer)

		switch strings.ToLower(answer) {
		case "o", "overwrite":
			return recycle.ConflictDecision{Action: recycle.ConflictOverwrite, ApplyToAll: applyToAll}
		case "r", "rename":
			return recycle.ConflictDecision{Action: recycle.ConflictRename, ApplyToAll: applyToAll}
		default:
			return recycle.ConflictDecision{Action: recycle.ConflictSkip, ApplyToAll: applyToAll}
		}
	}
}

func progressPrinter(out io.Writer) recycle.ProgressFunc {
	return func(index int, total int, entry model.BatchEntry) bool {
		fmt.Fprintf(out, "[%d/%d] %s\n", index+1, total, entry.SourcePath)
		return true
	}
}
