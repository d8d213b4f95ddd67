// MIT License
//
// Copyright (c) 2024-2026 Gregory Ledenev
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

// Package extension attaches new operations to existing types without
// modifying them. An extension pairs a delegate object with an extension
// interface; resolution produces a proxy whose operations dispatch to a
// statically registered extension class found by naming convention, or to
// handlers registered dynamically at run time.
//
// Resolution walks the delegate's class hierarchy, derived from embedded
// struct fields or declared with RegisterParent, ending at AnyObject. The
// identity operations String, Equals and HashCode make proxies observably
// interchangeable with their delegates. Resolved extensions are cached in
// a bounded weak-value cache; pointcut aspects weave before, after and
// around advice into every proxied invocation.
package extension

// Default shared resolvers for applications that do not need isolated
// resolver instances.
var (
	DefaultStatic  = NewStaticResolver()
	DefaultDynamic = NewDynamicResolver()
)
