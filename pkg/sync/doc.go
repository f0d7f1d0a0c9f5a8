/*
The sync package implements the mirror's sync algorithm. It decides which
studies in the remote catalog need to be downloaded, and downloads them.

Each study is mirrored as two artifacts:
1) The data artifact -- the zipped tabular export, stored as-is.
2) The metadata artifact -- the study's canonical metadata document.

A study is only considered mirrored if both artifacts exist and were written
after the study last changed in the catalog. Nothing else is persisted, so a
study whose sync failed half way is simply stale, and gets downloaded again on
the next run.

Studies are synced one at a time, in catalog order. A transport failure while
syncing a study doesn't stop the run. Instead, the engine pauses for a fixed
interval, and moves on to the next study.
*/
package sync
