package tui

// RunFinished is the message Stop sends before quitting.
var RunFinished = msgRunFinished{}
