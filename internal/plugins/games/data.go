package games

type triviaQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Correct  int      `json:"correct"`
	Category string   `json:"category"`
}

type riddle struct {
	Riddle string `json:"riddle"`
	Answer string `json:"answer"`
	Hint   string `json:"hint"`
}

type scrambledWord struct {
	Word      string `json:"word"`
	Hint      string `json:"hint"`
	Category  string `json:"category"`
	Scrambled string `json:"scrambled,omitempty"`
}

var triviaQuestions = []triviaQuestion{
	{Question: "What is the capital of France?", Options: []string{"London", "Berlin", "Paris", "Madrid"}, Correct: 2, Category: "Geography"},
	{Question: "Which planet is known as the Red Planet?", Options: []string{"Venus", "Mars", "Jupiter", "Saturn"}, Correct: 1, Category: "Science"},
	{Question: "Who painted the Mona Lisa?", Options: []string{"Van Gogh", "Picasso", "Da Vinci", "Monet"}, Correct: 2, Category: "Art"},
	{Question: "What is the largest mammal in the world?", Options: []string{"Elephant", "Blue Whale", "Giraffe", "Hippopotamus"}, Correct: 1, Category: "Nature"},
	{Question: "In which year did World War II end?", Options: []string{"1944", "1945", "1946", "1947"}, Correct: 1, Category: "History"},
	{Question: "What is the chemical symbol for gold?", Options: []string{"Go", "Gd", "Au", "Ag"}, Correct: 2, Category: "Science"},
	{Question: "Which country invented pizza?", Options: []string{"France", "Italy", "Greece", "Spain"}, Correct: 1, Category: "Food"},
	{Question: "What is the fastest land animal?", Options: []string{"Lion", "Cheetah", "Leopard", "Tiger"}, Correct: 1, Category: "Nature"},
	{Question: "How many continents are there?", Options: []string{"5", "6", "7", "8"}, Correct: 2, Category: "Geography"},
	{Question: "What is the smallest country in the world?", Options: []string{"Monaco", "Vatican City", "San Marino", "Liechtenstein"}, Correct: 1, Category: "Geography"},
}

var riddles = []riddle{
	{Riddle: "I have keys but no locks. I have space but no room. You can enter, but you can't go outside. What am I?", Answer: "keyboard", Hint: "You use it to type!"},
	{Riddle: "The more you take, the more you leave behind. What am I?", Answer: "footsteps", Hint: "Think about walking!"},
	{Riddle: "I'm tall when I'm young, and short when I'm old. What am I?", Answer: "candle", Hint: "It burns and melts!"},
	{Riddle: "What has hands but cannot clap?", Answer: "clock", Hint: "It tells time!"},
	{Riddle: "What gets wet while drying?", Answer: "towel", Hint: "You use it after a shower!"},
}

var words = []scrambledWord{
	{Word: "GOPHER", Hint: "The mascot of a programming language", Category: "Technology"},
	{Word: "RAINBOW", Hint: "Colorful arc in the sky after rain", Category: "Nature"},
	{Word: "TELESCOPE", Hint: "Device used to see distant objects", Category: "Science"},
	{Word: "BUTTERFLY", Hint: "Colorful insect that was once a caterpillar", Category: "Nature"},
	{Word: "CHOCOLATE", Hint: "Sweet treat made from cocoa", Category: "Food"},
}
