// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

// Package http provides composable HTTP handlers for the passkey
// ceremonies.
//
// The handlers are plain http.HandlerFunc values and can be mounted on
// any router. MountChi and MountStdlib cover the common cases; Routes
// exposes the route table for everything else.
//
// The begin and finish halves of a ceremony are linked by the
// X-Session-Id header. Begin responses always carry the header; clients
// that do not send one on begin get a freshly minted key. Finish
// requests must send it back.
//
//	svc, _ := passkey.NewService(passkey.Params{ /* ... */ })
//	handler := passkeyhttp.NewHandler(svc)
//
//	r := chi.NewRouter()
//	r.Route("/api/v1/passkey", func(r chi.Router) {
//	    passkeyhttp.MountChi(r, handler)
//	})
package http
