package handlers

import "PPicture/service/collab"

// RegisterAll 注册全部内置处理器
func RegisterAll(s *collab.Server) {
	ctx := &collab.Context{S: s}
	s.Register(
		NewEnterEditHandler(ctx),
		NewExitEditHandler(ctx),
		NewEditActionHandler(ctx),
		NewErrorHandler(ctx),
	)
}
