/*
Copyright (C) 2026  MemCP Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package transport

import (
	"testing"
	"time"
)

func TestSqlToJSONSafeConvertsByteSlicesAndTimes(t *testing.T) {
	if got := sqlToJSONSafe([]byte("hello")); got != "hello" {
		t.Fatalf("expected []byte to become a string, got %v (%T)", got, got)
	}
	ts := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := sqlToJSONSafe(ts); got != "2020-01-02 03:04:05" {
		t.Fatalf("expected formatted timestamp, got %v", got)
	}
	if got := sqlToJSONSafe(int64(7)); got != int64(7) {
		t.Fatalf("expected int64 to pass through unchanged, got %v", got)
	}
}

func TestDenseObjIDFormatsAsDecimal(t *testing.T) {
	if string(denseObjID(42)) != "42" {
		t.Fatalf("expected \"42\", got %q", denseObjID(42))
	}
}
