package xrloader

// Handle values are opaque 64-bit identifiers issued by the loader or the
// runtime. The zero value is the null handle.

// Instance identifies a live loader instance.
type Instance uint64

// Session identifies a session created from an instance.
type Session uint64

// DebugUtilsMessenger identifies a debug-utils messenger.
type DebugUtilsMessenger uint64

// NullHandle is the null value for every handle type.
const NullHandle = 0

// NullInstance is the null Instance handle.
const NullInstance Instance = 0

// NullSession is the null Session handle.
const NullSession Session = 0

// NullDebugUtilsMessenger is the null DebugUtilsMessenger handle.
const NullDebugUtilsMessenger DebugUtilsMessenger = 0
