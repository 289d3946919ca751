package config

// FirebaseServiceAccountKeyPath points at the service account used for FCM pushes.
const FirebaseServiceAccountKeyPath = "config/firebase-service-account.json"
