// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package log defines the logging contract shared by every actorgrid
// component and its zap based implementation.
package log

// Field keys used across the code base. Entries about one actor or service
// carry the matching key so they can be filtered.
const (
	FieldActor     = "actor"
	FieldActorType = "actorType"
	FieldService   = "service"
	FieldSystem    = "system"
	FieldDirective = "directive"
	FieldState     = "state"
	FieldTopic     = "topic"
	FieldComponent = "component"
)

// Logger is the leveled logger handed to components through their WithLogger
// option.
//
// Fatal and Fatalf exit the process after logging. Panic and Panicf panic
// with the message.
type Logger interface {
	Debug(...any)
	Debugf(string, ...any)
	Info(...any)
	Infof(string, ...any)
	Warn(...any)
	Warnf(string, ...any)
	Error(...any)
	Errorf(string, ...any)
	Fatal(...any)
	Fatalf(string, ...any)
	Panic(...any)
	Panicf(string, ...any)

	// LogLevel returns the minimum level written.
	LogLevel() Level
	// With returns a child logger adding the key value pairs to every entry.
	// Keys must be strings: pairs with another key type are dropped, and a
	// trailing key without value is written under "_".
	With(keyValues ...any) Logger
}
