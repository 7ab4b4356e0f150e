package actions

var jsonRunEtl = `{
  "schemaVersion": 1,
  "description": "etl from ${sourceType} song and activity files to ${targetType} analytical tables",
  "connections": {
    "source": {
      "type": "${sourceType}",
      "logicalName": "${sourceEnv}",
      "data": ${sourceConnData}
    },
    "target": {
      "type": "${targetType}",
      "logicalName": "${targetEnv}",
      "data": ${targetConnData}
    }
  },
  "type": "${repeatTransform}",
  "repeatMetadata": {
    "sleepSeconds": ${sleepSeconds}
  },
  "transformGroups": {
    "10-clean-outputs": {
      "type": "sequential",
      "steps": {
        "cleanSongs": {
          "type": "OutputClean",
          "data": {
            "logicalConnectionName": "target",
            "tableName": "songs"
          }
        },
        "cleanArtists": {
          "type": "OutputClean",
          "data": {
            "logicalConnectionName": "target",
            "tableName": "artists"
          }
        },
        "cleanUsers": {
          "type": "OutputClean",
          "data": {
            "logicalConnectionName": "target",
            "tableName": "users"
          }
        },
        "cleanTime": {
          "type": "OutputClean",
          "data": {
            "logicalConnectionName": "target",
            "tableName": "time"
          }
        },
        "cleanSongplays": {
          "type": "OutputClean",
          "data": {
            "logicalConnectionName": "target",
            "tableName": "songplays"
          }
        }
      },
      "sequence": [
        "cleanSongs",
        "cleanArtists",
        "cleanUsers",
        "cleanTime",
        "cleanSongplays"
      ]
    },
    "20-songs": {
      "type": "sequential",
      "steps": {
        "listSongFiles": {
          "type": "${listStepType}",
          "data": {
            "logicalConnectionName": "source",
            "fileNamePrefix": "song_data",
            "fileNameRegexp": "\\.json$"
          }
        },
        "readSongFiles": {
          "type": "JsonFileInput",
          "data": {
            "logicalConnectionName": "source",
            "readDataFromStep": "listSongFiles",
            "jsonFormat": "object"
          }
        },
        "mapSongs": {
          "type": "FieldMapper",
          "data": {
            "readDataFromStep": "readSongFiles"
          },
          "steps": [
            {
              "type": "ProjectFields",
              "data": {
                "fields": "song_id,title,artist_id,year,duration"
              }
            }
          ]
        },
        "dedupSongs": {
          "type": "DedupRows",
          "data": {
            "readDataFromStep": "mapSongs"
          }
        },
        "writeSongs": {
          "type": "ParquetFileWriter",
          "data": {
            "readDataFromStep": "dedupSongs",
            "tableName": "songs",
            "stagingDirectory": "${stagingDir}"
          }
        },
        "copySongs": {
          "type": "${copyStepType}",
          "data": {
            "logicalConnectionName": "target",
            "readDataFromStep": "writeSongs",
            "inputFieldName4FilePath": "#DataFileName",
            "removeInputFiles": "true"
          }
        },
        "manifestSongs": {
          "type": "ManifestWriter",
          "data": {
            "readDataFromStep": "copySongs",
            "fileNamePrefix": "manifest-songs",
            "fileNameSuffixAppendCreationStamp": "true",
            "fileNameExtension": "csv",
            "outputFieldName4ManifestDir": "#ManifestDir",
            "outputFieldName4ManifestName": "#ManifestName",
            "outputFieldName4ManifestFullPath": "#ManifestFullPath"
          }
        },
        "copyManifestSongs": {
          "type": "${copyStepType}",
          "data": {
            "logicalConnectionName": "target",
            "readDataFromStep": "manifestSongs",
            "inputFieldName4FilePath": "#ManifestFullPath",
            "inputFieldName4RelativePath": "#ManifestName",
            "removeInputFiles": "true"
          }
        }
      },
      "sequence": [
        "listSongFiles",
        "readSongFiles",
        "mapSongs",
        "dedupSongs",
        "writeSongs",
        "copySongs",
        "manifestSongs",
        "copyManifestSongs"
      ]
    },
    "30-artists": {
      "type": "sequential",
      "steps": {
        "listSongFiles4Artists": {
          "type": "${listStepType}",
          "data": {
            "logicalConnectionName": "source",
            "fileNamePrefix": "song_data",
            "fileNameRegexp": "\\.json$"
          }
        },
        "readSongFiles4Artists": {
          "type": "JsonFileInput",
          "data": {
            "logicalConnectionName": "source",
            "readDataFromStep": "listSongFiles4Artists",
            "jsonFormat": "object"
          }
        },
        "mapArtists": {
          "type": "FieldMapper",
          "data": {
            "readDataFromStep": "readSongFiles4Artists"
          },
          "steps": [
            {
              "type": "ProjectFields",
              "data": {
                "fields": "artist_id,artist_name:name,artist_location:location,artist_latitude:latitude,artist_longitude:longitude"
              }
            }
          ]
        },
        "dedupArtists": {
          "type": "DedupRows",
          "data": {
            "readDataFromStep": "mapArtists"
          }
        },
        "writeArtists": {
          "type": "ParquetFileWriter",
          "data": {
            "readDataFromStep": "dedupArtists",
            "tableName": "artists",
            "stagingDirectory": "${stagingDir}"
          }
        },
        "copyArtists": {
          "type": "${copyStepType}",
          "data": {
            "logicalConnectionName": "target",
            "readDataFromStep": "writeArtists",
            "inputFieldName4FilePath": "#DataFileName",
            "removeInputFiles": "true"
          }
        },
        "manifestArtists": {
          "type": "ManifestWriter",
          "data": {
            "readDataFromStep": "copyArtists",
            "fileNamePrefix": "manifest-artists",
            "fileNameSuffixAppendCreationStamp": "true",
            "fileNameExtension": "csv",
            "outputFieldName4ManifestDir": "#ManifestDir",
            "outputFieldName4ManifestName": "#ManifestName",
            "outputFieldName4ManifestFullPath": "#ManifestFullPath"
          }
        },
        "copyManifestArtists": {
          "type": "${copyStepType}",
          "data": {
            "logicalConnectionName": "target",
            "readDataFromStep": "manifestArtists",
            "inputFieldName4FilePath": "#ManifestFullPath",
            "inputFieldName4RelativePath": "#ManifestName",
            "removeInputFiles": "true"
          }
        }
      },
      "sequence": [
        "listSongFiles4Artists",
        "readSongFiles4Artists",
        "mapArtists",
        "dedupArtists",
        "writeArtists",
        "copyArtists",
        "manifestArtists",
        "copyManifestArtists"
      ]
    },
    "40-users": {
      "type": "sequential",
      "steps": {
        "listLogFiles": {
          "type": "${listStepType}",
          "data": {
            "logicalConnectionName": "source",
            "fileNamePrefix": "log_data",
            "fileNameRegexp": "\\.json$"
          }
        },
        "readLogFiles": {
          "type": "JsonFileInput",
          "data": {
            "logicalConnectionName": "source",
            "readDataFromStep": "listLogFiles",
            "jsonFormat": "lines"
          }
        },
        "filterNextSong": {
          "type": "FilterRows",
          "data": {
            "readDataFromStep": "readLogFiles",
            "filterType": "JsonLogic",
            "filterMetadata": "{\"==\":[{\"var\":\"page\"},\"NextSong\"]}"
          }
        },
        "mapUsers": {
          "type": "FieldMapper",
          "data": {
            "readDataFromStep": "filterNextSong"
          },
          "steps": [
            {
              "type": "ProjectFields",
              "data": {
                "fields": "userId:user_id,firstName:first_name,lastName:last_name,gender,level"
              }
            }
          ]
        },
        "dedupUsers": {
          "type": "DedupRows",
          "data": {
            "readDataFromStep": "mapUsers"
          }
        },
        "writeUsers": {
          "type": "ParquetFileWriter",
          "data": {
            "readDataFromStep": "dedupUsers",
            "tableName": "users",
            "stagingDirectory": "${stagingDir}"
          }
        },
        "copyUsers": {
          "type": "${copyStepType}",
          "data": {
            "logicalConnectionName": "target",
            "readDataFromStep": "writeUsers",
            "inputFieldName4FilePath": "#DataFileName",
            "removeInputFiles": "true"
          }
        },
        "manifestUsers": {
          "type": "ManifestWriter",
          "data": {
            "readDataFromStep": "copyUsers",
            "fileNamePrefix": "manifest-users",
            "fileNameSuffixAppendCreationStamp": "true",
            "fileNameExtension": "csv",
            "outputFieldName4ManifestDir": "#ManifestDir",
            "outputFieldName4ManifestName": "#ManifestName",
            "outputFieldName4ManifestFullPath": "#ManifestFullPath"
          }
        },
        "copyManifestUsers": {
          "type": "${copyStepType}",
          "data": {
            "logicalConnectionName": "target",
            "readDataFromStep": "manifestUsers",
            "inputFieldName4FilePath": "#ManifestFullPath",
            "inputFieldName4RelativePath": "#ManifestName",
            "removeInputFiles": "true"
          }
        }
      },
      "sequence": [
        "listLogFiles",
        "readLogFiles",
        "filterNextSong",
        "mapUsers",
        "dedupUsers",
        "writeUsers",
        "copyUsers",
        "manifestUsers",
        "copyManifestUsers"
      ]
    },
    "50-time": {
      "type": "sequential",
      "steps": {
        "listLogFiles4Time": {
          "type": "${listStepType}",
          "data": {
            "logicalConnectionName": "source",
            "fileNamePrefix": "log_data",
            "fileNameRegexp": "\\.json$"
          }
        },
        "readLogFiles4Time": {
          "type": "JsonFileInput",
          "data": {
            "logicalConnectionName": "source",
            "readDataFromStep": "listLogFiles4Time",
            "jsonFormat": "lines"
          }
        },
        "filterNextSong4Time": {
          "type": "FilterRows",
          "data": {
            "readDataFromStep": "readLogFiles4Time",
            "filterType": "JsonLogic",
            "filterMetadata": "{\"==\":[{\"var\":\"page\"},\"NextSong\"]}"
          }
        },
        "mapTime": {
          "type": "FieldMapper",
          "data": {
            "readDataFromStep": "filterNextSong4Time"
          },
          "steps": [
            {
              "type": "DatePart",
              "data": {
                "fieldName": "ts",
                "datePart": "hour",
                "resultField": "hour"
              }
            },
            {
              "type": "DatePart",
              "data": {
                "fieldName": "ts",
                "datePart": "day",
                "resultField": "day"
              }
            },
            {
              "type": "DatePart",
              "data": {
                "fieldName": "ts",
                "datePart": "week",
                "resultField": "week"
              }
            },
            {
              "type": "DatePart",
              "data": {
                "fieldName": "ts",
                "datePart": "month",
                "resultField": "month"
              }
            },
            {
              "type": "DatePart",
              "data": {
                "fieldName": "ts",
                "datePart": "year",
                "resultField": "year"
              }
            },
            {
              "type": "DatePart",
              "data": {
                "fieldName": "ts",
                "datePart": "weekday",
                "resultField": "weekday"
              }
            },
            {
              "type": "ProjectFields",
              "data": {
                "fields": "ts:start_time,hour,day,week,month,year,weekday"
              }
            }
          ]
        },
        "dedupTime": {
          "type": "DedupRows",
          "data": {
            "readDataFromStep": "mapTime"
          }
        },
        "writeTime": {
          "type": "ParquetFileWriter",
          "data": {
            "readDataFromStep": "dedupTime",
            "tableName": "time",
            "stagingDirectory": "${stagingDir}"
          }
        },
        "copyTime": {
          "type": "${copyStepType}",
          "data": {
            "logicalConnectionName": "target",
            "readDataFromStep": "writeTime",
            "inputFieldName4FilePath": "#DataFileName",
            "removeInputFiles": "true"
          }
        },
        "manifestTime": {
          "type": "ManifestWriter",
          "data": {
            "readDataFromStep": "copyTime",
            "fileNamePrefix": "manifest-time",
            "fileNameSuffixAppendCreationStamp": "true",
            "fileNameExtension": "csv",
            "outputFieldName4ManifestDir": "#ManifestDir",
            "outputFieldName4ManifestName": "#ManifestName",
            "outputFieldName4ManifestFullPath": "#ManifestFullPath"
          }
        },
        "copyManifestTime": {
          "type": "${copyStepType}",
          "data": {
            "logicalConnectionName": "target",
            "readDataFromStep": "manifestTime",
            "inputFieldName4FilePath": "#ManifestFullPath",
            "inputFieldName4RelativePath": "#ManifestName",
            "removeInputFiles": "true"
          }
        }
      },
      "sequence": [
        "listLogFiles4Time",
        "readLogFiles4Time",
        "filterNextSong4Time",
        "mapTime",
        "dedupTime",
        "writeTime",
        "copyTime",
        "manifestTime",
        "copyManifestTime"
      ]
    },
    "60-songplays": {
      "type": "sequential",
      "steps": {
        "listSongFiles4Plays": {
          "type": "${listStepType}",
          "data": {
            "logicalConnectionName": "source",
            "fileNamePrefix": "song_data",
            "fileNameRegexp": "\\.json$"
          }
        },
        "readSongFiles4Plays": {
          "type": "JsonFileInput",
          "data": {
            "logicalConnectionName": "source",
            "readDataFromStep": "listSongFiles4Plays",
            "jsonFormat": "object"
          }
        },
        "listLogFiles4Plays": {
          "type": "${listStepType}",
          "data": {
            "logicalConnectionName": "source",
            "fileNamePrefix": "log_data",
            "fileNameRegexp": "\\.json$"
          }
        },
        "readLogFiles4Plays": {
          "type": "JsonFileInput",
          "data": {
            "logicalConnectionName": "source",
            "readDataFromStep": "listLogFiles4Plays",
            "jsonFormat": "lines"
          }
        },
        "filterNextSong4Plays": {
          "type": "FilterRows",
          "data": {
            "readDataFromStep": "readLogFiles4Plays",
            "filterType": "JsonLogic",
            "filterMetadata": "{\"==\":[{\"var\":\"page\"},\"NextSong\"]}"
          }
        },
        "joinSongIds": {
          "type": "LookupJoin",
          "data": {
            "readBuildDataFromStep": "readSongFiles4Plays",
            "readProbeDataFromStep": "filterNextSong4Plays",
            "joinKeys": "artist:artist_name,song:title",
            "outputFieldsCSV": "song_id,artist_id"
          }
        },
        "mapSongplays": {
          "type": "FieldMapper",
          "data": {
            "readDataFromStep": "joinSongIds"
          },
          "steps": [
            {
              "type": "DatePart",
              "data": {
                "fieldName": "ts",
                "datePart": "year",
                "resultField": "year"
              }
            },
            {
              "type": "DatePart",
              "data": {
                "fieldName": "ts",
                "datePart": "month",
                "resultField": "month"
              }
            },
            {
              "type": "Sequence",
              "data": {
                "resultField": "songplay_id"
              }
            },
            {
              "type": "ProjectFields",
              "data": {
                "fields": "songplay_id,ts:start_time,userId:user_id,level,song_id,artist_id,sessionId:session_id,location,userAgent:user_agent,year,month"
              }
            }
          ]
        },
        "writeSongplays": {
          "type": "ParquetFileWriter",
          "data": {
            "readDataFromStep": "mapSongplays",
            "tableName": "songplays",
            "stagingDirectory": "${stagingDir}"
          }
        },
        "copySongplays": {
          "type": "${copyStepType}",
          "data": {
            "logicalConnectionName": "target",
            "readDataFromStep": "writeSongplays",
            "inputFieldName4FilePath": "#DataFileName",
            "removeInputFiles": "true"
          }
        },
        "manifestSongplays": {
          "type": "ManifestWriter",
          "data": {
            "readDataFromStep": "copySongplays",
            "fileNamePrefix": "manifest-songplays",
            "fileNameSuffixAppendCreationStamp": "true",
            "fileNameExtension": "csv",
            "outputFieldName4ManifestDir": "#ManifestDir",
            "outputFieldName4ManifestName": "#ManifestName",
            "outputFieldName4ManifestFullPath": "#ManifestFullPath"
          }
        },
        "copyManifestSongplays": {
          "type": "${copyStepType}",
          "data": {
            "logicalConnectionName": "target",
            "readDataFromStep": "manifestSongplays",
            "inputFieldName4FilePath": "#ManifestFullPath",
            "inputFieldName4RelativePath": "#ManifestName",
            "removeInputFiles": "true"
          }
        }
      },
      "sequence": [
        "listSongFiles4Plays",
        "readSongFiles4Plays",
        "listLogFiles4Plays",
        "readLogFiles4Plays",
        "filterNextSong4Plays",
        "joinSongIds",
        "mapSongplays",
        "writeSongplays",
        "copySongplays",
        "manifestSongplays",
        "copyManifestSongplays"
      ]
    }
  },
  "sequence": [
    "10-clean-outputs",
    "20-songs",
    "30-artists",
    "40-users",
    "50-time",
    "60-songplays"
  ]
}`
