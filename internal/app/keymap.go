package app

// Key binding constants used in handleKey.
const (
	KeyQuit        = "q"
	KeyCtrlC       = "ctrl+c"
	KeyNextPage    = "tab"
	KeyPrevPage    = "shift+tab"
	KeyRefresh     = "r"
	KeyUp          = "up"
	KeyDown        = "down"
	KeyJ           = "j"
	KeyK           = "k"
	KeyEnter       = "enter"
	KeyEsc         = "esc"
	KeyEdit        = "e"
	KeyDelete      = "d"
	KeyConfirm     = "y"
	KeyExport      = "x"
	KeyClearLogs   = "c"
	KeyToggle      = " "
	KeySave        = "ctrl+s"
	KeyResetPrompt = "ctrl+r"
)
