// Package notify holds the notification model and the Registry that owns the
// set of on-screen notifications.
//
// The Registry is an ordered pub-sub store. Every mutation (Add, Remove,
// Update, Clear) produces an immutable snapshot of the full list which is
// delivered to all subscribers in mutation order. Subscribers run one at a
// time and may call back into the Registry; such nested mutations are applied
// immediately and their snapshots are delivered after the current pass.
//
// Notifications with a positive Duration that are not Persistent get exactly
// one expiry timer. Removing a notification, by any path, stops its timer.
//
// # Usage
//
//	reg := notify.NewRegistry(notify.WithRegistryLogger(logger))
//	defer reg.Close()
//
//	unsubscribe := reg.Subscribe(func(list []notify.Notification) {
//	    render(list)
//	})
//	defer unsubscribe()
//
//	id := reg.Add(notify.Request{
//	    Kind:     notify.KindSuccess,
//	    Message:  "Material M-12 completed",
//	    Priority: notify.PriorityNormal,
//	    Category: notify.CategoryMaterial,
//	    Duration: 5 * time.Second,
//	})
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package notify
