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
	"github.com/baldurk/renderdoc-sub050/gapis/api/vulkan"
	"github.com/baldurk/renderdoc-sub050/gapis/resetplan"
	"github.com/spf13/cobra"
)

// RangesFlags select the image subresources summarized by the ranges verb.
type RangesFlags struct {
	Image     uint64
	Aspect    string
	BaseMip   uint32
	Mips      uint32
	BaseLayer uint32
	Layers    uint32
}

// subresourceRange returns the selected range, or nil for the whole image.
func (f *RangesFlags) subresourceRange(cmd *cobra.Command) (*vulkan.VkImageSubresourceRange, error) {
	selected := false
	for _, name := range []string{"aspect", "base-mip", "mips", "base-layer", "layers"} {
		selected = selected || cmd.Flags().Changed(name)
	}
	if !selected {
		return nil, nil
	}
	r := &vulkan.VkImageSubresourceRange{
		AspectMask:     ^vulkan.VkImageAspectFlags(0),
		BaseMipLevel:   f.BaseMip,
		LevelCount:     f.Mips,
		BaseArrayLayer: f.BaseLayer,
		LayerCount:     f.Layers,
	}
	if f.Aspect != "" {
		mask, err := vulkan.ParseImageAspectFlags(f.Aspect)
		if err != nil {
			return nil, err
		}
		r.AspectMask = mask
	}
	if r.LevelCount == 0 {
		r.LevelCount = vulkan.VK_REMAINING_MIP_LEVELS
	}
	if r.LayerCount == 0 {
		r.LayerCount = vulkan.VK_REMAINING_ARRAY_LAYERS
	}
	return r, nil
}

func newRangesCommand(root *RootFlags) *cobra.Command {
	flags := &RangesFlags{}
	cmd := &cobra.Command{
		Use:   "ranges <trace.yaml>",
		Short: "Prints the layout and queue family changes of an image over a frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := log.V{"image": flags.Image}.Bind(log.Enter(cmd.Context(), "ranges"))
			r, err := flags.subresourceRange(cmd)
			if err != nil {
				return log.Err(ctx, err, "Invalid subresource range")
			}
			trace, err := loadTrace(args[0])
			if err != nil {
				return log.Err(ctx, err, "Failed to load the trace")
			}
			plan := resetplan.Run(ctx, root.options(), trace.Events)
			image := resetplan.ResourceID(flags.Image)
			changes, err := plan.RangeChanges(image, r)
			if err != nil {
				return log.Err(ctx, err, "Failed to summarize the image")
			}
			if root.Format == "json" {
				err = resetplan.WriteRangeChangesJSON(cmd.OutOrStdout(), image, changes)
			} else {
				err = resetplan.WriteRangeChanges(cmd.OutOrStdout(), image, changes)
			}
			if err != nil {
				return log.Err(ctx, err, "Failed to write the summary")
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&flags.Image, "image", 0, "image to summarize")
	cmd.Flags().StringVar(&flags.Aspect, "aspect", "", "aspects to select, such as color or depth|stencil (default all)")
	cmd.Flags().Uint32Var(&flags.BaseMip, "base-mip", 0, "first mip level")
	cmd.Flags().Uint32Var(&flags.Mips, "mips", 0, "number of mip levels (0 for the remaining levels)")
	cmd.Flags().Uint32Var(&flags.BaseLayer, "base-layer", 0, "first array layer")
	cmd.Flags().Uint32Var(&flags.Layers, "layers", 0, "number of array layers (0 for the remaining layers)")
	cmd.MarkFlagRequired("image")
	return cmd
}
