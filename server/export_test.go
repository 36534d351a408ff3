package server

// ClientCount reports how many sessions currently hold a backend client
func (s *Server) ClientCount() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return s.clients.Len()
}
