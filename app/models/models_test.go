package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/farmdirect/farmdirect/app/models"
)

func TestOrderStatusWorkflow(t *testing.T) {
	cases := []struct {
		from, to models.OrderStatus
		want     bool
	}{
		{models.StatusPlaced, models.StatusConfirmed, true},
		{models.StatusPlaced, models.StatusCancelled, true},
		{models.StatusPlaced, models.StatusShipped, false},
		{models.StatusConfirmed, models.StatusPacked, true},
		{models.StatusPacked, models.StatusShipped, true},
		{models.StatusShipped, models.StatusDelivered, true},
		{models.StatusShipped, models.StatusCancelled, true},
		{models.StatusDelivered, models.StatusCancelled, false},
		{models.StatusCancelled, models.StatusPlaced, false},
		{models.StatusConfirmed, models.StatusConfirmed, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.from.CanTransitionTo(c.to), "%s -> %s", c.from, c.to)
	}

	assert.True(t, models.StatusDelivered.Valid())
	assert.False(t, models.OrderStatus("LOST").Valid())
}

func TestDefaultNote(t *testing.T) {
	assert.Equal(t, "Order shipped", models.DefaultNote(models.StatusShipped))
}

func TestChatHasParticipant(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	chat := models.Chat{Participants: []primitive.ObjectID{a}}

	assert.True(t, chat.HasParticipant(a))
	assert.False(t, chat.HasParticipant(b))
}

func TestProductGeoItem(t *testing.T) {
	farmer := primitive.NewObjectID()
	p := models.Product{ID: primitive.NewObjectID(), Farmer: farmer, Title: "Okra", PricePerUnit: 30, IsAvailable: true}

	it := p.GeoItem()
	assert.Equal(t, p.ID.Hex(), it.ID)
	assert.Equal(t, farmer.Hex(), it.FarmerID)
	assert.Equal(t, 30.0, it.PricePerUnit)
	assert.True(t, it.IsAvailable)
}
