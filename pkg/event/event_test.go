package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListenAndFire(t *testing.T) {
	b := NewBus()
	var got []string
	b.Listen(OrderAccepted, func(ev Event) { got = append(got, OrderID(ev.Data)) })
	b.Listen(OrderDelivered, func(Event) { t.Fatal("wrong event") })

	b.Fire(Event{Name: OrderAccepted, Data: json.RawMessage(`"o1"`)})
	assert.Equal(t, []string{"o1"}, got)
}

func TestUnsubscribe(t *testing.T) {
	b := NewBus()
	calls := 0
	off := b.Listen(NewOrder, func(Event) { calls++ })
	allOff := b.ListenAll(func(Event) { calls++ })

	b.Fire(Event{Name: NewOrder})
	off()
	allOff()
	b.Fire(Event{Name: NewOrder})
	assert.Equal(t, 2, calls)
}

func TestFlushDropsListeners(t *testing.T) {
	b := NewBus()
	calls := 0
	b.Listen(OrderCancelled, func(Event) { calls++ })
	b.ListenAll(func(Event) { calls++ })

	b.Fire(Event{Name: OrderCancelled})
	b.Flush()
	b.Fire(Event{Name: OrderCancelled})
	assert.Equal(t, 2, calls)
}

func TestOrderIDShapes(t *testing.T) {
	assert.Equal(t, "o1", OrderID(json.RawMessage(`"o1"`)))
	assert.Equal(t, "o2", OrderID(json.RawMessage(`{"orderId":"o2"}`)))
	assert.Equal(t, "o3", OrderID(json.RawMessage(`{"_id":"o3"}`)))
	assert.Equal(t, "", OrderID(json.RawMessage(`12`)))
	assert.Equal(t, "", OrderID(nil))
}
