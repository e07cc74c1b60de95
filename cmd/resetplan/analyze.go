// Copyright (C) 2017 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"github.com/baldurk/renderdoc-sub050/core/log"
	"github.com/baldurk/renderdoc-sub050/gapis/resetplan"
	"github.com/baldurk/renderdoc-sub050/gapis/tracker"
	"github.com/spf13/cobra"
)

// AnalyzeFlags are the flags of the analyze verb.
type AnalyzeFlags struct {
	// FailOnError makes the verb fail if an event of the trace was rejected.
	FailOnError bool
}

func newAnalyzeCommand(root *RootFlags) *cobra.Command {
	flags := &AnalyzeFlags{}
	cmd := &cobra.Command{
		Use:   "analyze <trace.yaml>",
		Short: "Prints the reset plan of a frame trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := log.Enter(cmd.Context(), "analyze")
			trace, err := loadTrace(args[0])
			if err != nil {
				return log.Err(ctx, err, "Failed to load the trace")
			}
			plan := resetplan.Run(ctx, root.options(), trace.Events)
			counts := plan.Count()
			log.I(ctx, "%d resources: %d reset, %d init, %d untouched",
				len(plan.Resources), counts[tracker.NeedsReset], counts[tracker.NeedsInit], counts[tracker.NoReset])

			out := cmd.OutOrStdout()
			if root.Format == "json" {
				err = resetplan.WriteJSON(out, trace.Frame, plan)
			} else {
				err = resetplan.WriteText(out, trace.Frame, plan)
			}
			if err != nil {
				return log.Err(ctx, err, "Failed to write the plan")
			}
			if flags.FailOnError && len(plan.Errors) > 0 {
				return log.Errf(ctx, plan.Errors.First(), "%d events rejected", len(plan.Errors))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&flags.FailOnError, "fail-on-error", false, "fail if any event of the trace was rejected")
	return cmd
}
