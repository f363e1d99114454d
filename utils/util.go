// Copyright (c) 2024 The Falcon Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.
package utils

import "fmt"

// Assert panics with a formatted message if cond is false. Used for
// internal invariant checks that indicate a compiler bug rather than a
// malformed input (spec.md §7's "internal invariant violations... remain
// panics", as opposed to the structured errors returned for input-shaped
// failures).
func Assert(cond bool, format string, msg ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, msg...))
	}
}

// Unimplement marks a code path deliberately not built yet.
func Unimplement() {
	panic("Not implement yet")
}

// ShouldNotReachHere marks a switch arm or invariant the caller believes
// is unreachable given its own preceding checks.
func ShouldNotReachHere() {
	panic("Should not reach here")
}

// Align16 rounds n up to the next multiple of 16, the x86-64 System-V
// and Windows x64 stack alignment requirement at a call boundary. Used
// by regalloc's frame-size accounting instead of falcon's own inlined
// "(n + 15) &^ 15" at each call site.
func Align16(n int) int {
	return (n + 15) &^ 15
}
