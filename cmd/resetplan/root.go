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
	"fmt"
	"os"
	"strings"

	"github.com/baldurk/renderdoc-sub050/core/log"
	"github.com/baldurk/renderdoc-sub050/gapis/resetplan"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// RootFlags are the flags shared by every verb.
type RootFlags struct {
	Format               string
	LogStyle             string
	LogLevel             string
	StrictLayouts        bool
	StrictQueueOwnership bool
	PromoteAliased       bool
}

var formats = []string{"text", "json"}

func newRootCommand() *cobra.Command {
	flags := &RootFlags{}
	defaults := resetplan.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "resetplan",
		Short: "Plans the resource resets needed to replay a Vulkan frame",
		Long: `Replays the events of a recorded Vulkan frame through per-byte memory
tracking and per-subresource image tracking, and reports which buffers and
images have to be reset or initialized before the frame can be replayed.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(flags.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", flags.Format, formats)
			}
			style, ok := log.StyleByName(flags.LogStyle)
			if !ok {
				return fmt.Errorf("invalid log style %q: must be one of %v", flags.LogStyle, log.StyleNames())
			}
			severity, err := log.ParseSeverity(flags.LogLevel)
			if err != nil {
				return err
			}
			ctx := log.PutHandler(cmd.Context(), style.Handler(log.To(cmd.ErrOrStderr())))
			ctx = log.PutFilter(ctx, log.SeverityFilter(severity))
			cmd.SetContext(ctx)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flags.Format, "format", "text", "output format ("+strings.Join(formats, "|")+")")
	cmd.PersistentFlags().StringVar(&flags.LogStyle, "log-style", log.Brief.Name, "log style ("+strings.Join(log.StyleNames(), "|")+")")
	cmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "warning", "lowest severity to log")
	cmd.PersistentFlags().BoolVar(&flags.StrictLayouts, "strict-layouts", defaults.StrictLayouts,
		"reset image subresources used in an unexpected layout")
	cmd.PersistentFlags().BoolVar(&flags.StrictQueueOwnership, "strict-queue-ownership", defaults.StrictQueueOwnership,
		"reset exclusive resources used by a queue family that does not own them")
	cmd.PersistentFlags().BoolVar(&flags.PromoteAliased, "promote-aliased", defaults.PromoteAliasedToInit,
		"initialize aliased resources that need no reset")

	cmd.AddCommand(newAnalyzeCommand(flags))
	cmd.AddCommand(newRangesCommand(flags))
	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range formats {
		if f == format {
			return true
		}
	}
	return false
}

func (f *RootFlags) options() resetplan.Options {
	return resetplan.Options{
		StrictLayouts:        f.StrictLayouts,
		StrictQueueOwnership: f.StrictQueueOwnership,
		PromoteAliasedToInit: f.PromoteAliased,
	}
}

func loadTrace(path string) (*resetplan.Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Opening trace %v", path)
	}
	defer f.Close()
	trace, err := resetplan.LoadTrace(f)
	if err != nil {
		return nil, errors.Wrapf(err, "Loading trace %v", path)
	}
	return trace, nil
}
