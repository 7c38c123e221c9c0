// Package retrieval is the entry point used by the CLI, the tool server and
// the watcher. A Manager owns one database and one embedder; each
// conversation identity gets its own Service bound to a collection of the
// same name, so independent conversations never share state.
//
// Example:
//
//	m, err := retrieval.Open(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	defer m.Close()
//
//	svc, err := m.Service("chat_id_1")
//	if err != nil {
//	    return err
//	}
//	docs, err := svc.RelevantDocuments(ctx, "what is the refund window")
package retrieval
