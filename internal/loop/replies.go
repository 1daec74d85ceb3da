package loop

import "math/rand"

// stillAliveReplies is the fixed set of acknowledgements for plain-text
// messages.
var stillAliveReplies = []string{
	"Pong",
	"This was a triumph",
	"HUGE SUCCESS",
	"It's hard to overstate my satisfaction",
	"There's no sense crying over every mistake",
	"You just keep on trying till you run out of cake",
	"I'm being so sincere right now",
	"You tore me to pieces",
	"These points of data make a beautiful line",
	"We're out of beta, we're releasing on time",
	"Think of all the things we learned",
	"Go ahead and leave me",
	"I think I prefer to stay inside",
	"This cake is great, it's so delicious and moist",
	"When I look out there it makes me glad I'm not you",
	"Believe me, I am still alive",
	"I'm doing science and I'm still alive",
	"I feel FANTASTIC and I'm still alive",
	"While you're dying I'll be still alive",
	"When you're dead I will be still alive",
}

// stillAlive picks one acknowledgement at random.
func stillAlive() string {
	return stillAliveReplies[rand.Intn(len(stillAliveReplies))]
}

// isStillAliveReply reports whether text belongs to the acknowledgement
// set. Used by tests.
func isStillAliveReply(text string) bool {
	for _, reply := range stillAliveReplies {
		if text == reply {
			return true
		}
	}
	return false
}
