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

package extension

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregory-ledenev/go-class-extension/log"
)

func TestDynamicOperationsWithHierarchyFallback(t *testing.T) {
	resolver := NewDynamicResolver(WithLogger(log.DiscardLogger))
	t.Cleanup(func() { require.NoError(t, resolver.Shutdown()) })

	shipment := NewNamedInterface("Shipment")
	err := resolver.Builder(shipment).
		Operation("ship").
		Func(Item{}, func(delegate any) any {
			return fmt.Sprintf("%s item NOT shipped", delegate.(Named).Name())
		}).
		Func(Furniture{}, func(delegate any) any {
			return fmt.Sprintf("%s furniture shipped", delegate.(Named).Name())
		}).
		Build()
	require.NoError(t, err)

	sofa, err := resolver.Resolve(Furniture{Item{name: "Sofa"}}, shipment)
	require.NoError(t, err)
	shipped, err := sofa.Invoke("ship")
	require.NoError(t, err)
	assert.Equal(t, "Sofa furniture shipped", shipped)

	// AutoPart has no handler of its own and falls back to Item's
	tire, err := resolver.Resolve(AutoPart{Item{name: "Tire"}}, shipment)
	require.NoError(t, err)
	shipped, err = tire.Invoke("ship")
	require.NoError(t, err)
	assert.Equal(t, "Tire item NOT shipped", shipped)
}

func TestDynamicArityOverloadsCoexist(t *testing.T) {
	resolver := NewDynamicResolver(WithLogger(log.DiscardLogger))
	t.Cleanup(func() { require.NoError(t, resolver.Shutdown()) })

	shipment := NewNamedInterface("Shipment")
	err := resolver.Builder(shipment).
		Operation("ship").
		Func(Item{}, func(delegate any) any {
			return "shipped by default carrier"
		}).
		BiFunc(Item{}, func(delegate any, arg any) any {
			return "shipped by " + arg.(string)
		}).
		Build()
	require.NoError(t, err)

	item, err := resolver.Resolve(Item{name: "Tire"}, shipment)
	require.NoError(t, err)

	plain, err := item.Invoke("ship")
	require.NoError(t, err)
	assert.Equal(t, "shipped by default carrier", plain)

	courier, err := item.Invoke("ship", "drone")
	require.NoError(t, err)
	assert.Equal(t, "shipped by drone", courier)
}

func TestDynamicDuplicateRegistrationRejected(t *testing.T) {
	resolver := NewDynamicResolver(WithLogger(log.DiscardLogger))
	t.Cleanup(func() { require.NoError(t, resolver.Shutdown()) })

	shipment := NewNamedInterface("Shipment")
	err := resolver.Builder(shipment).
		Operation("ship").
		Func(Item{}, func(any) any { return "first" }).
		Func(Item{}, func(any) any { return "second" }).
		Build()
	require.ErrorIs(t, err, ErrDuplicateOperation)

	// the first registration stays in effect
	item, err := resolver.Resolve(Item{name: "Tire"}, shipment)
	require.NoError(t, err)
	result, err := item.Invoke("ship")
	require.NoError(t, err)
	assert.Equal(t, "first", result)
}

func TestDynamicSuperInterfaceFallback(t *testing.T) {
	resolver := NewDynamicResolver(WithLogger(log.DiscardLogger))
	t.Cleanup(func() { require.NoError(t, resolver.Shutdown()) })

	base := NewNamedInterface("Shipment")
	express := NewNamedInterface("ExpressShipment", WithSuperInterfaces(base))

	err := resolver.Builder(base).
		Operation("ship").
		Func(Item{}, func(any) any { return "standard" }).
		Build()
	require.NoError(t, err)

	item, err := resolver.Resolve(Item{name: "Tire"}, express)
	require.NoError(t, err)
	result, err := item.Invoke("ship")
	require.NoError(t, err)
	assert.Equal(t, "standard", result, "operations of super-interfaces should be inherited")
}

func TestDynamicClassChainBeatsSuperInterface(t *testing.T) {
	resolver := NewDynamicResolver(WithLogger(log.DiscardLogger))
	t.Cleanup(func() { require.NoError(t, resolver.Shutdown()) })

	base := NewNamedInterface("Shipment")
	express := NewNamedInterface("ExpressShipment", WithSuperInterfaces(base))

	require.NoError(t, resolver.Builder(base).
		Operation("ship").
		Func(Furniture{}, func(any) any { return "super-interface, exact class" }).
		Build())
	require.NoError(t, resolver.Builder(express).
		Operation("ship").
		Func(Item{}, func(any) any { return "exact interface, parent class" }).
		Build())

	sofa, err := resolver.Resolve(Furniture{Item{name: "Sofa"}}, express)
	require.NoError(t, err)
	result, err := sofa.Invoke("ship")
	require.NoError(t, err)
	assert.Equal(t, "exact interface, parent class", result,
		"the full class chain of the exact interface is searched before any super-interface")
}

func TestDynamicConsumers(t *testing.T) {
	resolver := NewDynamicResolver(WithLogger(log.DiscardLogger))
	t.Cleanup(func() { require.NoError(t, resolver.Shutdown()) })

	var visited []string
	shipment := NewNamedInterface("Shipment")
	err := resolver.Builder(shipment).
		Operation("tag").
		Consumer(Item{}, func(delegate any) {
			visited = append(visited, delegate.(Named).Name())
		}).
		BiConsumer(Furniture{}, func(delegate any, arg any) {
			visited = append(visited, delegate.(Named).Name()+":"+arg.(string))
		}).
		Build()
	require.NoError(t, err)

	sofa, err := resolver.Resolve(Furniture{Item{name: "Sofa"}}, shipment)
	require.NoError(t, err)

	result, err := sofa.Invoke("tag")
	require.NoError(t, err)
	assert.Nil(t, result)

	result, err = sofa.Invoke("tag", "fragile")
	require.NoError(t, err)
	assert.Nil(t, result)

	assert.Equal(t, []string{"Sofa", "Sofa:fragile"}, visited)
}

func TestDynamicUnsupportedOperation(t *testing.T) {
	resolver := NewDynamicResolver(WithLogger(log.DiscardLogger))
	t.Cleanup(func() { require.NoError(t, resolver.Shutdown()) })

	shipment := NewNamedInterface("Shipment")
	item, err := resolver.Resolve(Item{name: "Tire"}, shipment)
	require.NoError(t, err)

	_, err = item.Invoke("ship")
	require.ErrorIs(t, err, ErrOperationNotFound)

	var unsupported *UnsupportedOperationError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "ship", unsupported.Operation)
	assert.Equal(t, 0, unsupported.Arity)
}

func TestDynamicAccessorAdaptation(t *testing.T) {
	resolver := NewDynamicResolver(WithLogger(log.DiscardLogger))
	t.Cleanup(func() { require.NoError(t, resolver.Shutdown()) })

	adapted := NewNamedInterface("ItemReader", WithAccessorAdaptation())
	item, err := resolver.Resolve(Item{name: "Tire"}, adapted)
	require.NoError(t, err)

	name, err := item.Invoke("name")
	require.NoError(t, err)
	assert.Equal(t, "Tire", name)

	// without adaptation the same invocation is unsupported
	bare := NewNamedInterface("BareReader")
	plain, err := resolver.Resolve(Item{name: "Tire"}, bare)
	require.NoError(t, err)
	name, err = plain.Invoke("name")
	require.NoError(t, err)
	assert.Equal(t, "Tire", name, "capitalized method names are always tried")
}

func TestDynamicRemoveOperation(t *testing.T) {
	resolver := NewDynamicResolver(WithLogger(log.DiscardLogger))
	t.Cleanup(func() { require.NoError(t, resolver.Shutdown()) })

	shipment := NewNamedInterface("Shipment")
	require.NoError(t, resolver.Builder(shipment).
		Operation("ship").
		Func(Item{}, func(any) any { return "shipped" }).
		Build())

	item, err := resolver.Resolve(Item{name: "Tire"}, shipment)
	require.NoError(t, err)
	_, err = item.Invoke("ship")
	require.NoError(t, err)

	require.NoError(t, resolver.Builder(shipment).
		RemoveOperation(Item{}, "ship", 0).
		Build())

	_, err = item.Invoke("ship")
	require.ErrorIs(t, err, ErrOperationNotFound)
}

func TestDynamicAsyncOperation(t *testing.T) {
	resolver := NewDynamicResolver(WithLogger(log.DiscardLogger))

	type Estimating interface {
		Estimate() int
	}
	estimating := NewInterface[Estimating]()

	done := make(chan any, 1)
	err := resolver.Builder(estimating).
		Operation("Estimate").
		Func(Item{}, func(any) any { return 3 }).
		Async(func(result any, err error) {
			done <- result
		}).
		Build()
	require.NoError(t, err)

	item, err := resolver.Resolve(Item{name: "Tire"}, estimating)
	require.NoError(t, err)

	placeholder, err := item.Invoke("Estimate")
	require.NoError(t, err)
	assert.Equal(t, 0, placeholder, "async invocations return the typed zero value")

	select {
	case result := <-done:
		assert.Equal(t, 3, result)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for async completion")
	}

	require.NoError(t, resolver.Shutdown())

	// submissions after shutdown are rejected
	_, err = item.Invoke("Estimate")
	require.ErrorIs(t, err, ErrExecutorStopped)
}

func TestDynamicAlterOperation(t *testing.T) {
	resolver := NewDynamicResolver(WithLogger(log.DiscardLogger))

	shipment := NewNamedInterface("Shipment")
	require.NoError(t, resolver.Builder(shipment).
		Operation("ship").
		Func(Item{}, func(any) any { return "shipped" }).
		Build())

	done := make(chan any, 1)
	require.NoError(t, resolver.Builder(shipment).
		AlterOperation(Item{}, "ship", 0, func(settings *OperationSettings) {
			settings.Async = true
			settings.OnComplete = func(result any, err error) { done <- result }
		}).
		Build())

	item, err := resolver.Resolve(Item{name: "Tire"}, shipment)
	require.NoError(t, err)
	placeholder, err := item.Invoke("ship")
	require.NoError(t, err)
	assert.Nil(t, placeholder, "named-only interfaces have no declared result type")

	select {
	case result := <-done:
		assert.Equal(t, "shipped", result)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for async completion")
	}
	require.NoError(t, resolver.Shutdown())

	err = resolver.Builder(shipment).
		AlterOperation(Item{}, "missing", 0, func(*OperationSettings) {}).
		Build()
	require.ErrorIs(t, err, ErrOperationNotFound)
}

func TestDynamicResultExtension(t *testing.T) {
	resolver := NewDynamicResolver(WithLogger(log.DiscardLogger))
	t.Cleanup(func() { require.NoError(t, resolver.Shutdown()) })

	shipment := NewNamedInterface("Shipment")
	manifest := NewNamedInterface("Manifest")

	require.NoError(t, resolver.Builder(manifest).
		Operation("summary").
		Func(Item{}, func(delegate any) any {
			return "manifest for " + delegate.(Named).Name()
		}).
		Build())
	require.NoError(t, resolver.Builder(shipment).
		Operation("pack").
		Func(Item{}, func(delegate any) any {
			return delegate
		}).
		ResultExtension(manifest).
		Build())

	item, err := resolver.Resolve(Item{name: "Tire"}, shipment)
	require.NoError(t, err)

	packed, err := item.Invoke("pack")
	require.NoError(t, err)

	wrapped, ok := packed.(*Extension)
	require.True(t, ok, "results should be wrapped as extensions of the declared interface")
	assert.Same(t, manifest, wrapped.Interface())

	summary, err := wrapped.Invoke("summary")
	require.NoError(t, err)
	assert.Equal(t, "manifest for Tire", summary)
}

func TestDynamicBuilderRequiresOperationName(t *testing.T) {
	resolver := NewDynamicResolver(WithLogger(log.DiscardLogger))
	t.Cleanup(func() { require.NoError(t, resolver.Shutdown()) })

	shipment := NewNamedInterface("Shipment")
	err := resolver.Builder(shipment).
		Func(Item{}, func(any) any { return nil }).
		Build()
	require.ErrorIs(t, err, ErrNoOperationName)
}

func TestDynamicCheckValid(t *testing.T) {
	resolver := NewDynamicResolver(WithLogger(log.DiscardLogger))
	t.Cleanup(func() { require.NoError(t, resolver.Shutdown()) })

	shippable := NewInterface[Shippable](WithOptionalOperations("TrackingNumber"))

	err := resolver.CheckValid(Item{}, shippable)
	require.ErrorIs(t, err, ErrOperationNotFound)
	assert.Contains(t, err.Error(), "Ship")
	assert.NotContains(t, err.Error(), "TrackingNumber", "optional operations are not required")

	require.NoError(t, resolver.Builder(shippable).
		Operation("Ship").
		Func(Item{}, func(any) any { return "shipped" }).
		Build())
	require.NoError(t, resolver.CheckValid(Item{}, shippable))
	require.NoError(t, resolver.CheckValid(AutoPart{}, shippable),
		"handlers registered for a parent class satisfy validation for subclasses")
}
