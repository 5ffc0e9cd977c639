package groups

var welcomeMessages = []string{
	"🎉 Welcome {name}! Great to have you here!",
	"👋 Hey {name}! Welcome to our awesome group!",
	"🌟 {name} just joined! Let's give them a warm welcome!",
	"🎊 Welcome aboard {name}! Hope you enjoy your stay!",
	"🚀 {name} has landed! Welcome to the group!",
}

var goodbyeMessages = []string{
	"👋 Goodbye {name}! Thanks for being part of our community!",
	"🌅 {name} has left the building! We'll miss you!",
	"✨ Farewell {name}! Hope to see you again soon!",
	"🎭 {name} has exited stage left! Take care!",
	"🌊 {name} sailed away! Safe travels!",
}

var truths = []string{
	"What's the most embarrassing thing you've done in public?",
	"What's your biggest fear?",
	"What's the weirdest food combination you actually enjoy?",
	"What's your most useless talent?",
	"What's the last lie you told?",
	"What's your guilty pleasure?",
	"What's the strangest dream you've ever had?",
	"What's your most irrational fear?",
	"What's the worst advice you've ever given?",
	"What's your secret talent that no one knows about?",
}

var dares = []string{
	"Send a voice message singing your favorite song",
	"Change your profile picture to something funny for 24 hours",
	"Send a selfie making the silliest face you can",
	"Write a short poem about the last thing you ate",
	"Do 10 jumping jacks and send a video",
	"Speak in rhymes for the next 10 messages",
	"Do your best impression of a famous person",
	"Send a voice message in a funny accent",
}

var facts = []string{
	"🐙 Octopuses have three hearts and blue blood!",
	"🍯 Honey never spoils. Archaeologists have found edible honey in ancient Egyptian tombs!",
	"🦒 A giraffe's tongue is about 20 inches long and is dark blue to prevent sunburn!",
	"🌙 The Moon is moving away from Earth at about 1.5 inches per year!",
	"🐧 Penguins can jump up to 6 feet out of water!",
	"🧠 Your brain uses about 20% of your body's total energy!",
	"🦋 Butterflies taste with their feet!",
	"🌊 The Pacific Ocean is larger than all land masses combined!",
	"⚡ Lightning strikes the Earth about 100 times per second!",
	"🐨 Koalas sleep up to 22 hours a day!",
}

var eightBall = []string{
	"🟢 Yes, definitely!",
	"🟢 It is certain!",
	"🟢 Without a doubt!",
	"🟢 Yes, absolutely!",
	"🟢 You can count on it!",
	"🟡 Most likely!",
	"🟡 Outlook good!",
	"🟡 Signs point to yes!",
	"🟡 Reply hazy, try again!",
	"🟡 Ask again later!",
	"🟡 Better not tell you now!",
	"🟡 Cannot predict now!",
	"🟡 Concentrate and ask again!",
	"🔴 Don't count on it!",
	"🔴 My reply is no!",
	"🔴 My sources say no!",
	"🔴 Outlook not so good!",
	"🔴 Very doubtful!",
}
