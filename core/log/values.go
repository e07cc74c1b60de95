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

package log

import "context"

// V is a map of key-value pairs that can be bound to a context.
type V map[string]interface{}

type values struct {
	v      V
	parent *values
}

type valuesKeyTy string

const valuesKey valuesKeyTy = "log.valuesKey"

// Bind returns a new context with the values in v bound to it. Values bound
// to an outer context are shadowed by inner bindings of the same name.
func (v V) Bind(ctx context.Context) context.Context {
	if len(v) == 0 {
		return ctx
	}
	return context.WithValue(ctx, valuesKey, &values{v, getValues(ctx)})
}

func getValues(ctx context.Context) *values {
	out, _ := ctx.Value(valuesKey).(*values)
	return out
}
