package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepakmehta1/itt-whatsapp-functions/internal/domain"
)

func TestButtonTable_Reply(t *testing.T) {
	table := DefaultButtons()

	reply, ok := table.Reply("Call a human?", "919998887777")
	require.True(t, ok)
	require.Equal(t, domain.OutboundReply{
		Kind: domain.ReplyText,
		To:   "919998887777",
		Text: "Ok. sure. I will ask my team to contact you, Thank you!",
	}, reply)

	reply, ok = table.Reply("Explore trips?", "919998887777")
	require.True(t, ok)
	require.Equal(t, domain.ReplyTemplate, reply.Kind)
	require.Equal(t, "trip_state_buttons", reply.Template)

	reply, ok = table.Reply("Kasol Kheerganga", "919998887777")
	require.True(t, ok)
	require.Equal(t, domain.ReplyDocument, reply.Kind)
	require.Equal(t, "637030961426757", reply.DocumentID)
	require.Equal(t, "Kasol Kheerganga.pdf", reply.Filename)
}

func TestButtonTable_Reply_NoAction(t *testing.T) {
	table := DefaultButtons()

	_, ok := table.Reply("Uttarakhand Trips", "919998887777")
	require.False(t, ok)

	_, ok = table.Reply("Not a button", "919998887777")
	require.False(t, ok)
}

func TestButtonTable_Reply_DoesNotMutateTable(t *testing.T) {
	table := DefaultButtons()

	_, ok := table.Reply("Himachal Trips", "111")
	require.True(t, ok)
	require.Empty(t, table["Himachal Trips"].To)
}
