// Package htmlpdf renders HTML documents and web pages to PDF by driving a
// Chrome browser over the DevTools protocol.
//
// # Quick Start
//
// Render inline HTML with a browser launched for the call:
//
//	res, err := htmlpdf.Create(ctx, "<h1>Hello</h1>")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := res.WriteFile("hello.pdf"); err != nil {
//	    log.Fatal(err)
//	}
//
// Content starting with http:, https:, file: or data: is navigated to as a
// URL; anything else is loaded as document markup.
//
// # Rendering Pipeline
//
// Each Create call runs the same sequence:
//
//  1. Arm the deadline (WithTimeout) and check the caller's context
//  2. Launch a browser, or use the one at WithEndpoint
//  3. Open a dedicated tab with its own protocol connection
//  4. Register network listeners, then navigate and wait for the load event
//  5. Wait for the completion trigger, if any
//  6. Print the page to PDF
//  7. Close the tab and kill the browser if this call launched it
//
// Between every step, and around every protocol round trip, the call checks
// for timeout, cancellation, a failed main request and a fatal HTTP status.
//
// # Completion Triggers
//
// Pages that render asynchronously can tell the renderer when they are done:
//
//	htmlpdf.Create(ctx, url, htmlpdf.WithTrigger(htmlpdf.CallbackTrigger{}))
//
// and, in the page, call window.htmlPdfCb() once rendering is complete.
// The other built-in triggers are TimerTrigger, VariableTrigger,
// EventTrigger and ElementTrigger. Any type with a Wait method works.
//
// # Errors
//
// Failures are classified with sentinel errors that work with errors.Is:
// ErrTimedOut, ErrNavigationFailed, ErrHTTPStatus, ErrTriggerTimeout,
// ErrScript, ErrLaunch, ErrTabOpen, ErrPDFCapture and ErrCleanup.
// Cancelling the caller's context yields context.Canceled.
//
// # Concurrency
//
// Create is safe for concurrent use. Calls sharing an endpoint each open
// their own tab and share no state. To render many documents, launch one
// browser and point every call at it:
//
//	proc, err := htmlpdf.Launch(ctx, htmlpdf.LaunchConfig{})
//	if err != nil {
//	    return err
//	}
//	defer proc.Kill()
//	res, err := htmlpdf.Create(ctx, page, htmlpdf.WithEndpoint("127.0.0.1", proc.Port()))
//
// # Browser Requirements
//
// Launching requires Chrome/Chromium. The go-rod library downloads a managed
// Chromium on first run (~/.cache/rod/browser/) unless WithChromePath or
// ROD_BROWSER_BIN points at a binary. In containers and CI environments set
// ROD_NO_SANDBOX=1 to disable the Chrome sandbox.
package htmlpdf
