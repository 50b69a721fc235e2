// Package capture abstracts the audio capture collaborator. A Device
// delivers fixed-size mono frames on a channel at a fixed sample rate;
// permission denial on acquisition is reported distinctly from mid-session
// device failures.
package capture
