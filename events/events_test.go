package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestEventPublishingAndSubscribing creates several emitters for two event types and checks that emitter-specific and
// global subscribers receive the expected number of events.
func TestEventPublishingAndSubscribing(t *testing.T) {
	type compileEvent struct{ name string }
	type deployEvent struct{}

	compileEmitterA := EventEmitter[compileEvent]{}
	compileEmitterB := EventEmitter[compileEvent]{}
	deployEmitter := EventEmitter[deployEvent]{}

	var countA, countB, countDeploy, countCompileGlobal, countDeployGlobal int
	var lastName string
	compileEmitterA.Subscribe(func(event compileEvent) error {
		countA++
		lastName = event.name
		return nil
	})
	compileEmitterB.Subscribe(func(event compileEvent) error {
		countB++
		return nil
	})
	deployEmitter.Subscribe(func(event deployEvent) error {
		countDeploy++
		return nil
	})
	SubscribeAny(func(event compileEvent) error {
		countCompileGlobal++
		return nil
	})
	SubscribeAny(func(event deployEvent) error {
		countDeployGlobal++
		return nil
	})

	for i := 0; i < 3; i++ {
		assert.NoError(t, compileEmitterA.Publish(compileEvent{name: "Foo"}))
	}
	for i := 0; i < 5; i++ {
		assert.NoError(t, compileEmitterB.Publish(compileEvent{name: "Bar"}))
	}
	for i := 0; i < 7; i++ {
		assert.NoError(t, deployEmitter.Publish(deployEvent{}))
	}

	assert.EqualValues(t, 3, countA)
	assert.EqualValues(t, "Foo", lastName)
	assert.EqualValues(t, 5, countB)
	assert.EqualValues(t, 7, countDeploy)
	assert.EqualValues(t, 8, countCompileGlobal)
	assert.EqualValues(t, 7, countDeployGlobal)
}

// TestPublishStopsOnError ensures a failing handler stops propagation and its error is returned to the publisher.
func TestPublishStopsOnError(t *testing.T) {
	type stopEvent struct{}
	emitter := EventEmitter[stopEvent]{}

	expected := errors.New("handler failed")
	calledAfter := false
	emitter.Subscribe(func(stopEvent) error { return expected })
	emitter.Subscribe(func(stopEvent) error {
		calledAfter = true
		return nil
	})

	assert.ErrorIs(t, emitter.Publish(stopEvent{}), expected)
	assert.False(t, calledAfter)
}
